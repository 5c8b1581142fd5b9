package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (r *recorder) handle(_ context.Context, evt domain.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) all() []domain.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

func TestBus_OrderPreservedPerEntity(t *testing.T) {
	b := New(Config{})
	rec := &recorder{}
	b.Subscribe([]domain.EventKind{domain.EventVisitRecorded}, rec.handle)

	const n = 100
	ctx := context.Background()
	for i := 0; i < n; i++ {
		err := b.Publish(ctx, domain.DomainEvent{
			ID:        fmt.Sprintf("evt-%d", i),
			Kind:      domain.EventVisitRecorded,
			TeamID:    "team-1",
			StationID: fmt.Sprintf("station-%d", i),
		})
		require.NoError(t, err)
	}

	b.Close()

	got := rec.all()
	require.Len(t, got, n)
	for i, evt := range got {
		assert.Equal(t, fmt.Sprintf("evt-%d", i), evt.ID)
	}
}

func TestBus_EntitiesDoNotBlockEachOther(t *testing.T) {
	b := New(Config{})
	rec := &recorder{}
	b.Subscribe([]domain.EventKind{domain.EventVisitRecorded}, rec.handle)

	ctx := context.Background()
	teams := []string{"team-a", "team-b", "team-c"}
	for i := 0; i < 30; i++ {
		err := b.Publish(ctx, domain.DomainEvent{
			ID:     fmt.Sprintf("evt-%d", i),
			Kind:   domain.EventVisitRecorded,
			TeamID: teams[i%len(teams)],
		})
		require.NoError(t, err)
	}

	b.Close()

	got := rec.all()
	require.Len(t, got, 30)

	// Per-team order must match submission order even though teams
	// interleave on separate workers.
	perTeam := make(map[string][]string)
	for _, evt := range got {
		perTeam[evt.TeamID] = append(perTeam[evt.TeamID], evt.ID)
	}
	for ti, team := range teams {
		ids := perTeam[team]
		require.Len(t, ids, 10)
		for j, id := range ids {
			assert.Equal(t, fmt.Sprintf("evt-%d", ti+j*len(teams)), id)
		}
	}
}

func TestBus_DeduplicatesWithinTTL(t *testing.T) {
	b := New(Config{DedupeTTL: time.Minute})
	rec := &recorder{}
	b.Subscribe([]domain.EventKind{domain.EventTeamStatusChanged}, rec.handle)

	ctx := context.Background()
	evt := domain.DomainEvent{
		ID:     "evt-dup",
		Kind:   domain.EventTeamStatusChanged,
		TeamID: "team-1",
	}
	require.NoError(t, b.Publish(ctx, evt))
	require.NoError(t, b.Publish(ctx, evt))
	require.NoError(t, b.Publish(ctx, evt))

	b.Close()

	assert.Len(t, rec.all(), 1)
}

func TestBus_KindFiltering(t *testing.T) {
	b := New(Config{})
	visits := &recorder{}
	everything := &recorder{}
	b.Subscribe([]domain.EventKind{domain.EventVisitRecorded}, visits.handle)
	b.SubscribeAll(everything.handle)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, domain.DomainEvent{
		ID: "evt-1", Kind: domain.EventVisitRecorded, TeamID: "t1",
	}))
	require.NoError(t, b.Publish(ctx, domain.DomainEvent{
		ID: "evt-2", Kind: domain.EventTeamStatusChanged, TeamID: "t1",
	}))

	b.Close()

	assert.Len(t, visits.all(), 1)
	assert.Len(t, everything.all(), 2)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(Config{})
	rec := &recorder{}
	sub := b.Subscribe([]domain.EventKind{domain.EventVisitRecorded}, rec.handle)
	sub.Unsubscribe()

	require.NoError(t, b.Publish(context.Background(), domain.DomainEvent{
		ID: "evt-1", Kind: domain.EventVisitRecorded, TeamID: "t1",
	}))

	b.Close()

	assert.Empty(t, rec.all())
}

func TestBus_PublishAfterClose(t *testing.T) {
	b := New(Config{})
	b.Close()

	err := b.Publish(context.Background(), domain.DomainEvent{
		ID: "evt-1", Kind: domain.EventVisitRecorded, TeamID: "t1",
	})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	b := New(Config{})
	rec := &recorder{}
	b.Subscribe([]domain.EventKind{domain.EventVisitRecorded}, func(context.Context, domain.DomainEvent) error {
		return fmt.Errorf("boom")
	})
	b.Subscribe([]domain.EventKind{domain.EventVisitRecorded}, rec.handle)

	require.NoError(t, b.Publish(context.Background(), domain.DomainEvent{
		ID: "evt-1", Kind: domain.EventVisitRecorded, TeamID: "t1",
	}))

	b.Close()

	assert.Len(t, rec.all(), 1)
}
