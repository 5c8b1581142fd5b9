package domain

import "time"

// TeamStatus is a team's progression state within the event.
type TeamStatus string

const (
	TeamWaiting  TeamStatus = "waiting"
	TeamActive   TeamStatus = "active"
	TeamPaused   TeamStatus = "paused"
	TeamFinished TeamStatus = "finished"
)

// ValidTeamStatus reports whether s is one of the known statuses.
func ValidTeamStatus(s TeamStatus) bool {
	switch s {
	case TeamWaiting, TeamActive, TeamPaused, TeamFinished:
		return true
	}
	return false
}

// Team is a participating group progressing through stations.
type Team struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Status           TeamStatus `json:"status"`
	CurrentStationID *string    `json:"current_station_id,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}
