package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
)

func typesOf(insights []domain.Insight) []string {
	var types []string
	for _, in := range insights {
		types = append(types, in.Type)
	}
	return types
}

func TestGenerator_EmptyEvent(t *testing.T) {
	g := NewGenerator(Thresholds{})

	insights := g.Generate(domain.AggregateSnapshot{})
	assert.Empty(t, insights)
}

func TestGenerator_LowParticipation(t *testing.T) {
	g := NewGenerator(Thresholds{})

	snap := domain.AggregateSnapshot{
		Phase:             domain.PhaseActive,
		TotalTeams:        10,
		ParticipationRate: 30,
	}
	insights := g.Generate(snap)
	require.Len(t, insights, 1)
	assert.Equal(t, "low_participation", insights[0].Type)
	assert.Equal(t, domain.InsightHigh, insights[0].Priority)

	// Outside the active phase the rule stays quiet.
	snap.Phase = domain.PhasePaused
	assert.Empty(t, g.Generate(snap))
}

func TestGenerator_CompletionLevels(t *testing.T) {
	g := NewGenerator(Thresholds{})

	tests := []struct {
		name     string
		rate     float64
		finished int
		want     []string
	}{
		{"good completion", 60, 6, []string{"good_completion"}},
		{"low completion", 10, 1, []string{"low_completion"}},
		{"middling completion", 40, 4, nil},
		{"exactly at good threshold", 50, 5, nil},
		{"nobody finished yet", 0, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := domain.AggregateSnapshot{
				TotalTeams:        10,
				FinishedTeams:     tt.finished,
				CompletionRate:    tt.rate,
				ParticipationRate: 100,
				Phase:             domain.PhaseActive,
			}
			assert.Equal(t, tt.want, typesOf(g.Generate(snap)))
		})
	}
}

func TestGenerator_StationCongestion(t *testing.T) {
	g := NewGenerator(Thresholds{})

	snap := domain.AggregateSnapshot{
		TotalTeams:        4,
		ParticipationRate: 100,
		Phase:             domain.PhaseActive,
		Stations: []domain.StationStats{
			{StationID: "s1", Name: "Fountain", OpenVisits: 5, Congestion: domain.CongestionCritical},
			{StationID: "s2", Name: "Bridge", OpenVisits: 3, Congestion: domain.CongestionHigh},
			{StationID: "s3", Name: "Plaza", OpenVisits: 1, Congestion: domain.CongestionLow},
		},
	}

	insights := g.Generate(snap)
	require.Len(t, insights, 2)

	// Critical congestion sorts ahead of the busy-station notice.
	assert.Equal(t, domain.InsightCritical, insights[0].Priority)
	assert.Contains(t, insights[0].Description, "Fountain")
	assert.Equal(t, domain.InsightMedium, insights[1].Priority)
	assert.Contains(t, insights[1].Description, "Bridge")
}

func TestGenerator_StationDifficulty(t *testing.T) {
	g := NewGenerator(Thresholds{})

	snap := domain.AggregateSnapshot{
		TotalTeams:        4,
		ParticipationRate: 100,
		Stations: []domain.StationStats{
			{StationID: "s1", Name: "Maze", TotalVisits: 8, Difficulty: 90,
				CompletionRate: 10, AverageDwell: 45 * time.Minute},
			// High score but no data: stays quiet.
			{StationID: "s2", Name: "Untouched", TotalVisits: 0, Difficulty: 100},
		},
	}

	insights := g.Generate(snap)
	require.Len(t, insights, 1)
	assert.Equal(t, "difficult_station", insights[0].Type)
	assert.Contains(t, insights[0].Description, "Maze")
}

func TestGenerator_StalledTeams(t *testing.T) {
	g := NewGenerator(Thresholds{})

	insights := g.Generate(domain.AggregateSnapshot{
		TotalTeams:        4,
		ParticipationRate: 100,
		StalledTeams:      2,
	})
	require.Len(t, insights, 1)
	assert.Equal(t, "stalled_teams", insights[0].Type)
	assert.Equal(t, domain.InsightHigh, insights[0].Priority)
}

func TestGenerator_PriorityOrdering(t *testing.T) {
	g := NewGenerator(Thresholds{})

	snap := domain.AggregateSnapshot{
		Phase:             domain.PhaseActive,
		TotalTeams:        10,
		FinishedTeams:     6,
		CompletionRate:    60,
		ParticipationRate: 30,
		StalledTeams:      1,
		Stations: []domain.StationStats{
			{StationID: "s1", Name: "Fountain", OpenVisits: 6, Congestion: domain.CongestionCritical},
		},
	}

	insights := g.Generate(snap)
	require.NotEmpty(t, insights)

	for i := 1; i < len(insights); i++ {
		assert.LessOrEqual(t,
			insights[i-1].Priority.Rank(), insights[i].Priority.Rank(),
			"insights must be sorted critical first")
	}
	assert.Equal(t, domain.InsightCritical, insights[0].Priority)
	assert.Equal(t, domain.InsightLow, insights[len(insights)-1].Priority)
}
