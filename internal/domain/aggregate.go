package domain

import "time"

// CongestionLevel is the ordinal classification of simultaneous occupancy
// at a station.
type CongestionLevel string

const (
	CongestionLow      CongestionLevel = "low"
	CongestionMedium   CongestionLevel = "medium"
	CongestionHigh     CongestionLevel = "high"
	CongestionCritical CongestionLevel = "critical"
)

// StationStats holds the derived metrics for a single station.
type StationStats struct {
	StationID      string          `json:"station_id"`
	Name           string          `json:"name"`
	Sequence       int             `json:"sequence"`
	Active         bool            `json:"active"`
	OpenVisits     int             `json:"open_visits"`
	TotalVisits    int             `json:"total_visits"`
	Congestion     CongestionLevel `json:"congestion"`
	CompletionRate float64         `json:"completion_rate"`
	AverageDwell   time.Duration   `json:"average_dwell"`
	Difficulty     float64         `json:"difficulty"`
}

// FunnelStep is one milestone in the completion funnel. StationID is empty
// for the registration, start and completion steps.
type FunnelStep struct {
	Name        string  `json:"name"`
	StationID   string  `json:"station_id,omitempty"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
	DropOffRate float64 `json:"drop_off_rate"`
}

// AggregateSnapshot is a consistent, point-in-time view of the derived
// operational metrics. It is read-only and safe to recompute frequently.
type AggregateSnapshot struct {
	GeneratedAt       time.Time      `json:"generated_at"`
	Phase             EventPhase     `json:"phase"`
	TotalTeams        int            `json:"total_teams"`
	ActiveTeams       int            `json:"active_teams"`
	FinishedTeams     int            `json:"finished_teams"`
	StalledTeams      int            `json:"stalled_teams"`
	CompletionRate    float64        `json:"completion_rate"`
	ParticipationRate float64        `json:"participation_rate"`
	AverageCompletion time.Duration  `json:"average_completion"`
	Stations          []StationStats `json:"stations"`
	Funnel            []FunnelStep   `json:"funnel"`
}
