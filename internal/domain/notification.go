package domain

import "time"

// NotificationKind distinguishes the outbound communication channels.
type NotificationKind string

const (
	KindNotification NotificationKind = "notification"
	KindAnnouncement NotificationKind = "announcement"
	KindMessage      NotificationKind = "message"
)

// Classification categorizes a notification for downstream alerting.
type Classification string

const (
	ClassGeneral        Classification = "general"
	ClassUrgent         Classification = "urgent"
	ClassHint           Classification = "hint"
	ClassEmergency      Classification = "emergency"
	ClassSafety         Classification = "safety"
	ClassScheduleChange Classification = "schedule_change"
)

// ValidClassification reports whether c is one of the known classifications.
func ValidClassification(c Classification) bool {
	switch c {
	case ClassGeneral, ClassUrgent, ClassHint, ClassEmergency, ClassSafety, ClassScheduleChange:
		return true
	}
	return false
}

// Priority is the delivery priority downstream UI uses to decide
// alerting behavior (sound, pinning).
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Notification is an outbound communication to one or more teams.
// An empty Targets slice means "broadcast to all current and future teams";
// the target set is evaluated at delivery time, not frozen at creation.
type Notification struct {
	ID             string           `json:"id"`
	Kind           NotificationKind `json:"kind"`
	Classification Classification   `json:"classification"`
	Title          string           `json:"title"`
	Body           string           `json:"body"`
	Targets        []string         `json:"targets,omitempty"`
	Pinned         bool             `json:"pinned"`
	Urgent         bool             `json:"urgent"`
	CreatedAt      time.Time        `json:"created_at"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
}

// Broadcast reports whether the notification addresses all teams.
func (n Notification) Broadcast() bool {
	return len(n.Targets) == 0
}

// Targeted reports whether teamID is among the recipients.
func (n Notification) Targeted(teamID string) bool {
	if n.Broadcast() {
		return true
	}
	for _, t := range n.Targets {
		if t == teamID {
			return true
		}
	}
	return false
}

// Expired reports whether the notification is past its expiry.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// DeliveryPriority classifies the notification for downstream alerting.
func (n Notification) DeliveryPriority() Priority {
	switch {
	case n.Classification == ClassEmergency || n.Classification == ClassSafety:
		return PriorityCritical
	case n.Classification == ClassUrgent || n.Urgent:
		return PriorityHigh
	case n.Classification == ClassHint:
		return PriorityLow
	default:
		return PriorityNormal
	}
}
