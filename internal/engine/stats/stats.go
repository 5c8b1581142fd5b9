package stats

import (
	"time"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/engine/state"
)

// CongestionThresholds are the open-visit counts at which a station is
// classified medium, high and critical. Anything below Medium is low.
type CongestionThresholds struct {
	Medium   int
	High     int
	Critical int
}

// DefaultCongestionThresholds match the tiers observed live: fewer than 2
// simultaneous teams is calm, 5 or more is critical.
var DefaultCongestionThresholds = CongestionThresholds{Medium: 2, High: 3, Critical: 5}

// Config tunes the aggregation engine.
type Config struct {
	Congestion CongestionThresholds
	// StalledAfter is the inactivity window after which an active team
	// counts as stalled. Zero disables the stalled counter.
	StalledAfter time.Duration
}

// Engine derives rolling operational metrics from store snapshots. All
// computations are read-only; the engine never mutates state and is safe
// to call frequently from concurrent readers.
type Engine struct {
	store *state.Store
	conf  Config
	now   func() time.Time
}

func NewEngine(store *state.Store, conf Config) *Engine {
	if conf.Congestion == (CongestionThresholds{}) {
		conf.Congestion = DefaultCongestionThresholds
	}

	return &Engine{
		store: store,
		conf:  conf,
		now:   time.Now,
	}
}

// Snapshot computes the current aggregate metrics.
func (e *Engine) Snapshot() domain.AggregateSnapshot {
	return e.compute(e.store.Snapshot())
}

func (e *Engine) compute(snap state.Snapshot) domain.AggregateSnapshot {
	now := e.now()

	agg := domain.AggregateSnapshot{
		GeneratedAt: now,
		Phase:       snap.Event.Phase,
		TotalTeams:  len(snap.Teams),
	}

	var totalCompletion time.Duration
	var completed int
	for _, team := range snap.Teams {
		switch team.Status {
		case domain.TeamActive:
			agg.ActiveTeams++
		case domain.TeamFinished:
			agg.FinishedTeams++
		}
		if team.Status == domain.TeamFinished && team.StartedAt != nil && team.FinishedAt != nil {
			totalCompletion += team.FinishedAt.Sub(*team.StartedAt)
			completed++
		}
		if e.stalled(team, snap.VisitsByTeam[team.ID], now) {
			agg.StalledTeams++
		}
	}

	if agg.TotalTeams > 0 {
		agg.CompletionRate = float64(agg.FinishedTeams) / float64(agg.TotalTeams) * 100
		participating := 0
		for _, team := range snap.Teams {
			if team.Status != domain.TeamWaiting {
				participating++
			}
		}
		agg.ParticipationRate = float64(participating) / float64(agg.TotalTeams) * 100
	}
	if completed > 0 {
		agg.AverageCompletion = totalCompletion / time.Duration(completed)
	}

	agg.Stations = e.stationStats(snap, now)
	agg.Funnel = e.funnel(snap)

	return agg
}

func (e *Engine) stalled(team domain.Team, visits []domain.Visit, now time.Time) bool {
	if e.conf.StalledAfter <= 0 || team.Status != domain.TeamActive {
		return false
	}

	last := team.StartedAt
	for _, v := range visits {
		at := v.ArrivedAt
		if last == nil || at.After(*last) {
			last = &at
		}
	}
	if last == nil {
		return false
	}

	return now.Sub(*last) > e.conf.StalledAfter
}

func (e *Engine) stationStats(snap state.Snapshot, now time.Time) []domain.StationStats {
	stats := make([]domain.StationStats, 0, len(snap.Stations))

	for _, station := range snap.Stations {
		st := domain.StationStats{
			StationID: station.ID,
			Name:      station.Name,
			Sequence:  station.Sequence,
			Active:    station.Active,
		}

		var dwell time.Duration
		var closedVisits int
		completedTeams := make(map[string]struct{})
		for teamID, visits := range snap.VisitsByTeam {
			for _, v := range visits {
				if v.StationID != station.ID {
					continue
				}
				st.TotalVisits++
				if v.Open() {
					st.OpenVisits++
					continue
				}
				dwell += v.Dwell(now)
				closedVisits++
				completedTeams[teamID] = struct{}{}
			}
		}

		st.Congestion = e.classifyCongestion(st.OpenVisits)
		if len(snap.Teams) > 0 {
			st.CompletionRate = float64(len(completedTeams)) / float64(len(snap.Teams)) * 100
		}
		if closedVisits > 0 {
			st.AverageDwell = dwell / time.Duration(closedVisits)
		}
		st.Difficulty = difficultyScore(st.CompletionRate, st.AverageDwell)

		stats = append(stats, st)
	}

	return stats
}

func (e *Engine) classifyCongestion(openVisits int) domain.CongestionLevel {
	t := e.conf.Congestion
	switch {
	case openVisits >= t.Critical:
		return domain.CongestionCritical
	case openVisits >= t.High:
		return domain.CongestionHigh
	case openVisits >= t.Medium:
		return domain.CongestionMedium
	default:
		return domain.CongestionLow
	}
}

// difficultyScore maps a station's completion rate and average dwell time
// onto [0,100]. It is strictly decreasing in completion rate and
// non-decreasing in dwell time (saturating at one hour), so stations can
// be ranked without pinning an exact formula.
func difficultyScore(completionRate float64, avgDwell time.Duration) float64 {
	const dwellCeiling = time.Hour

	completionPart := (100 - completionRate) / 2

	dwellPart := float64(avgDwell) / float64(dwellCeiling) * 50
	if dwellPart > 50 {
		dwellPart = 50
	}

	return completionPart + dwellPart
}

// funnel builds the ordered milestone list: registration, event start, one
// step per active station in sequence order, then completion.
func (e *Engine) funnel(snap state.Snapshot) []domain.FunnelStep {
	total := len(snap.Teams)

	started := 0
	finished := 0
	for _, team := range snap.Teams {
		if team.StartedAt != nil {
			started++
		}
		if team.Status == domain.TeamFinished {
			finished++
		}
	}

	steps := make([]domain.FunnelStep, 0, len(snap.Stations)+3)
	steps = append(steps, domain.FunnelStep{Name: "registration", Count: total})
	steps = append(steps, domain.FunnelStep{Name: "event_start", Count: started})

	for _, station := range snap.Stations {
		if !station.Active {
			continue
		}
		reached := make(map[string]struct{})
		for teamID, visits := range snap.VisitsByTeam {
			for _, v := range visits {
				if v.StationID == station.ID {
					reached[teamID] = struct{}{}
					break
				}
			}
		}
		steps = append(steps, domain.FunnelStep{
			Name:      station.Name,
			StationID: station.ID,
			Count:     len(reached),
		})
	}

	steps = append(steps, domain.FunnelStep{Name: "event_completion", Count: finished})

	for i := range steps {
		if total > 0 {
			steps[i].Percentage = float64(steps[i].Count) / float64(total) * 100
		}
		if i > 0 && steps[i-1].Count > 0 {
			drop := float64(steps[i-1].Count-steps[i].Count) / float64(steps[i-1].Count) * 100
			if drop < 0 {
				// Teams can skip stations, so later steps may exceed
				// earlier ones; drop-off is floored at zero.
				drop = 0
			}
			steps[i].DropOffRate = drop
		}
	}

	return steps
}
