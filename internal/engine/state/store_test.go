package state

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s := New(domain.Event{ID: "event-1", Name: "Test Hunt"})

	_, err := s.RegisterTeam(domain.Team{ID: "team-1", Name: "Alpha"})
	require.NoError(t, err)
	_, err = s.RegisterTeam(domain.Team{ID: "team-2", Name: "Bravo"})
	require.NoError(t, err)

	_, err = s.AddStation(domain.Station{ID: "station-1", Name: "Fountain", Sequence: 1, Active: true})
	require.NoError(t, err)
	_, err = s.AddStation(domain.Station{ID: "station-2", Name: "Bridge", Sequence: 2, Active: true})
	require.NoError(t, err)

	return s
}

func TestStore_RegisterTeam(t *testing.T) {
	s := newTestStore(t)

	_, err := s.RegisterTeam(domain.Team{ID: "team-1", Name: "Duplicate"})
	assert.ErrorIs(t, err, ErrTeamExists)

	team, err := s.RegisterTeam(domain.Team{ID: "team-3", Name: "Charlie"})
	require.NoError(t, err)
	assert.Equal(t, domain.TeamWaiting, team.Status)

	s.SetPhase(domain.PhaseFinished)
	_, err = s.RegisterTeam(domain.Team{ID: "team-4", Name: "Delta"})
	assert.ErrorIs(t, err, ErrEventConcluded)
}

func TestStore_AddStation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddStation(domain.Station{ID: "station-1", Sequence: 9})
	assert.ErrorIs(t, err, ErrStationExists)

	_, err = s.AddStation(domain.Station{ID: "station-9", Sequence: 2})
	assert.ErrorIs(t, err, ErrDuplicateSequence)
}

func TestStore_ApplyTeamStatus(t *testing.T) {
	s := newTestStore(t)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	err := s.Apply(domain.DomainEvent{
		ID:         "evt-1",
		Kind:       domain.EventTeamStatusChanged,
		TeamID:     "team-1",
		TeamStatus: domain.TeamActive,
		OccurredAt: at,
	})
	require.NoError(t, err)

	team, err := s.GetTeam("team-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamActive, team.Status)
	require.NotNil(t, team.StartedAt)
	assert.Equal(t, at, *team.StartedAt)

	finishAt := at.Add(2 * time.Hour)
	err = s.Apply(domain.DomainEvent{
		ID:         "evt-2",
		Kind:       domain.EventTeamStatusChanged,
		TeamID:     "team-1",
		TeamStatus: domain.TeamFinished,
		OccurredAt: finishAt,
	})
	require.NoError(t, err)

	team, err = s.GetTeam("team-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamFinished, team.Status)
	require.NotNil(t, team.FinishedAt)
	assert.Equal(t, finishAt, *team.FinishedAt)
	assert.Nil(t, team.CurrentStationID)
}

func TestStore_ApplyUnknownEntities(t *testing.T) {
	s := newTestStore(t)

	err := s.Apply(domain.DomainEvent{
		ID:     "evt-1",
		Kind:   domain.EventTeamStatusChanged,
		TeamID: "ghost",
	})
	assert.ErrorIs(t, err, ErrTeamNotFound)

	err = s.Apply(domain.DomainEvent{
		ID:        "evt-2",
		Kind:      domain.EventVisitRecorded,
		TeamID:    "team-1",
		StationID: "ghost",
	})
	assert.ErrorIs(t, err, ErrStationNotFound)

	err = s.Apply(domain.DomainEvent{ID: "evt-3", Kind: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownEventKind)
}

func TestStore_VisitLifecycle(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	err := s.Apply(domain.DomainEvent{
		ID:         "evt-1",
		Kind:       domain.EventVisitRecorded,
		TeamID:     "team-1",
		StationID:  "station-1",
		OccurredAt: base,
	})
	require.NoError(t, err)

	team, err := s.GetTeam("team-1")
	require.NoError(t, err)
	require.NotNil(t, team.CurrentStationID)
	assert.Equal(t, "station-1", *team.CurrentStationID)

	// Arriving at the next station implicitly closes the prior visit.
	err = s.Apply(domain.DomainEvent{
		ID:         "evt-2",
		Kind:       domain.EventVisitRecorded,
		TeamID:     "team-1",
		StationID:  "station-2",
		OccurredAt: base.Add(15 * time.Minute),
	})
	require.NoError(t, err)

	visits, err := s.TeamVisits("team-1")
	require.NoError(t, err)
	require.Len(t, visits, 2)
	require.NotNil(t, visits[0].LeftAt)
	assert.Equal(t, base.Add(15*time.Minute), *visits[0].LeftAt)
	assert.True(t, visits[1].Open())

	// At most one open visit per team, ever.
	open := 0
	for _, v := range visits {
		if v.Open() {
			open++
		}
	}
	assert.Equal(t, 1, open)

	err = s.Apply(domain.DomainEvent{
		ID:         "evt-3",
		Kind:       domain.EventVisitClosed,
		TeamID:     "team-1",
		StationID:  "station-2",
		OccurredAt: base.Add(30 * time.Minute),
	})
	require.NoError(t, err)

	visits, err = s.TeamVisits("team-1")
	require.NoError(t, err)
	assert.False(t, visits[1].Open())

	team, err = s.GetTeam("team-1")
	require.NoError(t, err)
	assert.Nil(t, team.CurrentStationID)
}

func TestStore_FinishClosesOpenVisit(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	err := s.Apply(domain.DomainEvent{
		ID:         "evt-1",
		Kind:       domain.EventVisitRecorded,
		TeamID:     "team-1",
		StationID:  "station-1",
		OccurredAt: base,
	})
	require.NoError(t, err)

	err = s.Apply(domain.DomainEvent{
		ID:         "evt-2",
		Kind:       domain.EventTeamStatusChanged,
		TeamID:     "team-1",
		TeamStatus: domain.TeamFinished,
		OccurredAt: base.Add(time.Hour),
	})
	require.NoError(t, err)

	// The finish ends the in-progress visit so the station's open-visit
	// count goes back down.
	visits, err := s.TeamVisits("team-1")
	require.NoError(t, err)
	require.Len(t, visits, 1)
	require.NotNil(t, visits[0].LeftAt)
	assert.Equal(t, base.Add(time.Hour), *visits[0].LeftAt)

	team, err := s.GetTeam("team-1")
	require.NoError(t, err)
	assert.Nil(t, team.CurrentStationID)
}

func TestStore_VisitClosedWithoutOpenVisit(t *testing.T) {
	s := newTestStore(t)

	err := s.Apply(domain.DomainEvent{
		ID:        "evt-1",
		Kind:      domain.EventVisitClosed,
		TeamID:    "team-1",
		StationID: "station-1",
	})
	require.NoError(t, err)

	visits, err := s.TeamVisits("team-1")
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestStore_ApplyIsIdempotentPerEventID(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	evt := domain.DomainEvent{
		ID:         "evt-1",
		Kind:       domain.EventVisitRecorded,
		TeamID:     "team-1",
		StationID:  "station-1",
		OccurredAt: base,
	}
	require.NoError(t, s.Apply(evt))
	require.NoError(t, s.Apply(evt))
	require.NoError(t, s.Apply(evt))

	visits, err := s.TeamVisits("team-1")
	require.NoError(t, err)
	assert.Len(t, visits, 1)
}

func TestStore_StationToggle(t *testing.T) {
	s := newTestStore(t)

	err := s.Apply(domain.DomainEvent{
		ID:            "evt-1",
		Kind:          domain.EventStationActiveToggled,
		StationID:     "station-1",
		StationActive: false,
	})
	require.NoError(t, err)

	station, err := s.GetStation("station-1")
	require.NoError(t, err)
	assert.False(t, station.Active)
}

func TestStore_SetStationsActiveAtomic(t *testing.T) {
	s := newTestStore(t)

	missing, err := s.SetStationsActive([]string{"station-1", "ghost-1", "ghost-2"}, false)
	assert.ErrorIs(t, err, ErrStationNotFound)
	assert.ElementsMatch(t, []string{"ghost-1", "ghost-2"}, missing)

	// Nothing was applied.
	station, err := s.GetStation("station-1")
	require.NoError(t, err)
	assert.True(t, station.Active)

	missing, err = s.SetStationsActive([]string{"station-1", "station-2"}, false)
	require.NoError(t, err)
	assert.Empty(t, missing)

	for _, id := range []string{"station-1", "station-2"} {
		station, err = s.GetStation(id)
		require.NoError(t, err)
		assert.False(t, station.Active)
	}
}

func TestStore_Reset(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	s.MarkStarted(now)
	s.CascadeStart(now)
	require.NoError(t, s.Apply(domain.DomainEvent{
		ID:         "evt-1",
		Kind:       domain.EventVisitRecorded,
		TeamID:     "team-1",
		StationID:  "station-1",
		OccurredAt: now,
	}))

	s.Reset()

	event := s.Event()
	assert.Nil(t, event.StartedAt)
	assert.Nil(t, event.EndedAt)

	for _, team := range s.ListTeams() {
		assert.Equal(t, domain.TeamWaiting, team.Status)
		assert.Nil(t, team.StartedAt)
		assert.Nil(t, team.CurrentStationID)
	}

	visits, err := s.TeamVisits("team-1")
	require.NoError(t, err)
	assert.Empty(t, visits)

	// Previously applied event IDs are forgotten, so a replayed event
	// takes effect again.
	require.NoError(t, s.Apply(domain.DomainEvent{
		ID:         "evt-1",
		Kind:       domain.EventVisitRecorded,
		TeamID:     "team-1",
		StationID:  "station-1",
		OccurredAt: now,
	}))
	visits, err = s.TeamVisits("team-1")
	require.NoError(t, err)
	assert.Len(t, visits, 1)
}

func TestStore_Cascades(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.Apply(domain.DomainEvent{
		ID:         "evt-1",
		Kind:       domain.EventTeamStatusChanged,
		TeamID:     "team-2",
		TeamStatus: domain.TeamFinished,
		OccurredAt: now,
	}))

	s.CascadeStart(now)
	team, err := s.GetTeam("team-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamActive, team.Status)

	s.CascadePauseUnfinished()
	team, err = s.GetTeam("team-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamPaused, team.Status)

	// Finished teams stay finished.
	team, err = s.GetTeam("team-2")
	require.NoError(t, err)
	assert.Equal(t, domain.TeamFinished, team.Status)
}

func TestStore_ConcurrentApplies(t *testing.T) {
	s := New(domain.Event{ID: "event-1"})

	const teams = 8
	for i := 0; i < teams; i++ {
		_, err := s.RegisterTeam(domain.Team{ID: fmt.Sprintf("team-%d", i)})
		require.NoError(t, err)
	}
	_, err := s.AddStation(domain.Station{ID: "station-1", Sequence: 1, Active: true})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < teams; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Apply(domain.DomainEvent{
					ID:        fmt.Sprintf("evt-%d-%d", i, j),
					Kind:      domain.EventVisitRecorded,
					TeamID:    fmt.Sprintf("team-%d", i),
					StationID: "station-1",
				})
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < teams; i++ {
		visits, err := s.TeamVisits(fmt.Sprintf("team-%d", i))
		require.NoError(t, err)
		assert.Len(t, visits, 50)

		open := 0
		for _, v := range visits {
			if v.Open() {
				open++
			}
		}
		assert.Equal(t, 1, open)
	}
}
