package domain

import "time"

// Station is a fixed checkpoint teams visit in sequence.
type Station struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Sequence int          `json:"sequence"`
	Active   bool         `json:"active"`
	Clue     *ClueContent `json:"clue,omitempty"`
}

// Visit is an immutable fact: a team arrived at a station at a point in time.
// Visits are append-only; the only permitted mutation is setting LeftAt.
type Visit struct {
	TeamID    string     `json:"team_id"`
	StationID string     `json:"station_id"`
	ArrivedAt time.Time  `json:"arrived_at"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
}

// Open reports whether the team is still at the station.
func (v Visit) Open() bool {
	return v.LeftAt == nil
}

// Dwell returns how long the team spent (or has spent so far) at the station.
func (v Visit) Dwell(now time.Time) time.Duration {
	if v.LeftAt != nil {
		return v.LeftAt.Sub(v.ArrivedAt)
	}
	return now.Sub(v.ArrivedAt)
}
