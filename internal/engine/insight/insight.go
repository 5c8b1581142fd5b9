package insight

import (
	"fmt"
	"sort"
	"time"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
)

// Thresholds configure the rule triggers. Percentages are in [0,100].
type Thresholds struct {
	LowParticipationBelow float64
	GoodCompletionAbove   float64
	LowCompletionBelow    float64
	DifficultyAbove       float64
}

// DefaultThresholds are the values the organizer dashboard ships with.
var DefaultThresholds = Thresholds{
	LowParticipationBelow: 50,
	GoodCompletionAbove:   50,
	LowCompletionBelow:    25,
	DifficultyAbove:       75,
}

// rule inspects an aggregate snapshot and emits zero or more insights.
// Rules are independent: each guards its own preconditions, including
// zero-team and zero-station snapshots.
type rule func(snap domain.AggregateSnapshot, t Thresholds) []domain.Insight

var rules = []rule{
	lowParticipation,
	completionLevel,
	stationCongestion,
	stationDifficulty,
	stalledTeams,
}

// Generator produces prioritized operational insights from aggregates.
type Generator struct {
	thresholds Thresholds
}

func NewGenerator(thresholds Thresholds) *Generator {
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}
	return &Generator{thresholds: thresholds}
}

// Generate evaluates every rule and returns the insights ordered by
// priority (critical first). An event with no teams or stations yields an
// empty list, never an error.
func (g *Generator) Generate(snap domain.AggregateSnapshot) []domain.Insight {
	var insights []domain.Insight
	for _, r := range rules {
		insights = append(insights, r(snap, g.thresholds)...)
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Priority.Rank() < insights[j].Priority.Rank()
	})

	return insights
}

func lowParticipation(snap domain.AggregateSnapshot, t Thresholds) []domain.Insight {
	if snap.TotalTeams == 0 || snap.Phase != domain.PhaseActive {
		return nil
	}
	if snap.ParticipationRate >= t.LowParticipationBelow {
		return nil
	}

	return []domain.Insight{{
		Type:     "low_participation",
		Priority: domain.InsightHigh,
		Description: fmt.Sprintf("Only %.1f%% of registered teams are participating",
			snap.ParticipationRate),
		Recommendation: "Check in with teams that have not started yet",
	}}
}

func completionLevel(snap domain.AggregateSnapshot, t Thresholds) []domain.Insight {
	if snap.TotalTeams == 0 || snap.FinishedTeams == 0 {
		return nil
	}

	switch {
	case snap.CompletionRate > t.GoodCompletionAbove:
		return []domain.Insight{{
			Type:     "good_completion",
			Priority: domain.InsightLow,
			Description: fmt.Sprintf("%.1f%% of teams have completed the event",
				snap.CompletionRate),
		}}
	case snap.CompletionRate < t.LowCompletionBelow:
		return []domain.Insight{{
			Type:     "low_completion",
			Priority: domain.InsightMedium,
			Description: fmt.Sprintf("Completion rate is only %.1f%%",
				snap.CompletionRate),
			Recommendation: "Consider extending the event or simplifying remaining stations",
		}}
	}

	return nil
}

func stationCongestion(snap domain.AggregateSnapshot, _ Thresholds) []domain.Insight {
	var insights []domain.Insight
	for _, st := range snap.Stations {
		switch st.Congestion {
		case domain.CongestionCritical:
			insights = append(insights, domain.Insight{
				Type:     "station_congestion",
				Priority: domain.InsightCritical,
				Description: fmt.Sprintf("Station %q has %d teams waiting simultaneously",
					st.Name, st.OpenVisits),
				Recommendation: "Redirect arriving teams or open a parallel station",
			})
		case domain.CongestionHigh:
			insights = append(insights, domain.Insight{
				Type:     "station_congestion",
				Priority: domain.InsightMedium,
				Description: fmt.Sprintf("Station %q is busy with %d open visits",
					st.Name, st.OpenVisits),
			})
		}
	}

	return insights
}

func stationDifficulty(snap domain.AggregateSnapshot, t Thresholds) []domain.Insight {
	var insights []domain.Insight
	for _, st := range snap.Stations {
		if st.TotalVisits == 0 || st.Difficulty <= t.DifficultyAbove {
			continue
		}
		insights = append(insights, domain.Insight{
			Type:     "difficult_station",
			Priority: domain.InsightHigh,
			Description: fmt.Sprintf("Station %q has a difficulty score of %.0f (%.1f%% completion, %s average dwell)",
				st.Name, st.Difficulty, st.CompletionRate, st.AverageDwell.Round(time.Second)),
			Recommendation: "Review the station's clue or send a hint to struggling teams",
		})
	}

	return insights
}

func stalledTeams(snap domain.AggregateSnapshot, _ Thresholds) []domain.Insight {
	if snap.StalledTeams == 0 {
		return nil
	}

	return []domain.Insight{{
		Type:     "stalled_teams",
		Priority: domain.InsightHigh,
		Description: fmt.Sprintf("%d active teams have shown no station activity recently",
			snap.StalledTeams),
		Recommendation: "Contact stalled teams to confirm they are not lost",
	}}
}
