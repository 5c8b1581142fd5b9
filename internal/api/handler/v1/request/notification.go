package request

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

type PublishNotificationRequest struct {
	Kind           string     `json:"kind"`
	Classification string     `json:"classification"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	Targets        []string   `json:"targets"`
	Pinned         bool       `json:"pinned"`
	Urgent         bool       `json:"urgent"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

func (req *PublishNotificationRequest) Validate() error {
	if req.Title == "" && req.Body == "" {
		return errors.New("either title or body is required")
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Kind,
			validation.In("notification", "announcement", "message")),
		validation.Field(&req.Classification,
			validation.In("general", "urgent", "hint", "emergency", "safety", "schedule_change")),
		validation.Field(&req.Title, validation.Length(0, 200)),
	)
}

type EmergencyBroadcastRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (req *EmergencyBroadcastRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Body, validation.Required),
		validation.Field(&req.Title, validation.Length(0, 200)),
	)
}

type MarkReadRequest struct {
	TeamID string `json:"team_id"`
}

func (req *MarkReadRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.TeamID, validation.Required),
	)
}
