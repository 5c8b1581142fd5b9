package domain

import "time"

// EventKind is the type tag of a domain event on the bus. Distinct from
// EventPhase: a domain event is a message, the Event is the hunt instance.
type EventKind string

const (
	EventTeamStatusChanged    EventKind = "team.status_changed"
	EventVisitRecorded        EventKind = "station.visit_recorded"
	EventVisitClosed          EventKind = "station.visit_closed"
	EventStationActiveToggled EventKind = "station.active_toggled"
	EventPhaseRequested       EventKind = "event.phase_requested"
	EventMessageSent          EventKind = "message.sent"
	EventNotificationCreated  EventKind = "notification.created"
	EventNotificationRead     EventKind = "notification.read"
)

// ValidEventKind reports whether k is one of the known kinds.
func ValidEventKind(k EventKind) bool {
	switch k {
	case EventTeamStatusChanged, EventVisitRecorded, EventVisitClosed,
		EventStationActiveToggled, EventPhaseRequested, EventMessageSent,
		EventNotificationCreated, EventNotificationRead:
		return true
	}
	return false
}

// DomainEvent is a single typed message submitted to the engine. Only the
// fields relevant to the Kind are set; the rest stay zero.
type DomainEvent struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`

	TeamID        string      `json:"team_id,omitempty"`
	StationID     string      `json:"station_id,omitempty"`
	TeamStatus    TeamStatus  `json:"team_status,omitempty"`
	StationActive bool        `json:"station_active,omitempty"`
	Action        PhaseAction `json:"action,omitempty"`

	NotificationID string `json:"notification_id,omitempty"`
	RecipientID    string `json:"recipient_id,omitempty"`
	Title          string `json:"title,omitempty"`
	Body           string `json:"body,omitempty"`
}

// EntityKey returns the serialization key for causal ordering. All events
// sharing a key are applied in submission order; different keys may be
// processed concurrently.
func (e DomainEvent) EntityKey() string {
	switch e.Kind {
	case EventTeamStatusChanged, EventVisitRecorded, EventVisitClosed:
		return "team:" + e.TeamID
	case EventStationActiveToggled:
		return "station:" + e.StationID
	case EventNotificationCreated, EventNotificationRead:
		return "notification:" + e.NotificationID
	default:
		return "event"
	}
}
