package request

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

type SubmitEventRequest struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	OccurredAt    *time.Time `json:"occurred_at"`
	TeamID        string     `json:"team_id"`
	StationID     string     `json:"station_id"`
	TeamStatus    string     `json:"team_status"`
	StationActive bool       `json:"station_active"`
	Action        string     `json:"action"`

	NotificationID string `json:"notification_id"`
	RecipientID    string `json:"recipient_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}

func (req *SubmitEventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Kind, validation.Required),
	)
}

type PhaseTransitionRequest struct {
	Action string `json:"action"`
}

func (req *PhaseTransitionRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Action, validation.Required,
			validation.In("start", "pause", "resume", "finish", "cancel", "reset")),
	)
}

type RegisterTeamRequest struct {
	Name string `json:"name"`
}

func (req *RegisterTeamRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 50)),
	)
}

type ClueRequest struct {
	Kind     string   `json:"kind"`
	Text     string   `json:"text"`
	ImageURL string   `json:"image_url"`
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
}

type AddStationRequest struct {
	Name     string       `json:"name"`
	Sequence int          `json:"sequence"`
	Active   bool         `json:"active"`
	Clue     *ClueRequest `json:"clue"`
}

func (req *AddStationRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&req.Sequence, validation.Required, validation.Min(1)),
	)
}

type BulkActivateRequest struct {
	StationIDs []string `json:"station_ids"`
	Active     bool     `json:"active"`
}

func (req *BulkActivateRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.StationIDs, validation.Required),
	)
}
