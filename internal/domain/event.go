package domain

import "time"

// EventPhase is the lifecycle phase of the overall hunt event.
type EventPhase string

const (
	PhasePending   EventPhase = "pending"
	PhaseActive    EventPhase = "active"
	PhasePaused    EventPhase = "paused"
	PhaseFinished  EventPhase = "finished"
	PhaseCancelled EventPhase = "cancelled"
)

// Terminal reports whether no further transitions are possible from p.
func (p EventPhase) Terminal() bool {
	return p == PhaseFinished || p == PhaseCancelled
}

// PhaseAction is an organizer-issued lifecycle command.
type PhaseAction string

const (
	ActionStart  PhaseAction = "start"
	ActionPause  PhaseAction = "pause"
	ActionResume PhaseAction = "resume"
	ActionFinish PhaseAction = "finish"
	ActionCancel PhaseAction = "cancel"
	ActionReset  PhaseAction = "reset"
)

// Event is the hunt instance being orchestrated.
type Event struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Phase     EventPhase `json:"phase"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}
