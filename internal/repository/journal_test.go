package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/repository/dao"
)

type fakeJournalDAO struct {
	records map[string]dao.EventRecord
}

func newFakeJournalDAO() *fakeJournalDAO {
	return &fakeJournalDAO{records: make(map[string]dao.EventRecord)}
}

func (f *fakeJournalDAO) Insert(_ context.Context, record dao.EventRecord) (dao.EventRecord, error) {
	if _, ok := f.records[record.ID]; ok {
		return dao.EventRecord{}, dao.ErrEventExists
	}
	f.records[record.ID] = record
	return record, nil
}

func (f *fakeJournalDAO) MarkProcessed(_ context.Context, eventID string) error {
	record, ok := f.records[eventID]
	if !ok {
		return dao.ErrEventNotFound
	}
	record.Processed = true
	f.records[eventID] = record
	return nil
}

func (f *fakeJournalDAO) FindUnprocessed(_ context.Context, limit int) ([]dao.EventRecord, error) {
	var out []dao.EventRecord
	for _, record := range f.records {
		if !record.Processed && len(out) < limit {
			out = append(out, record)
		}
	}
	return out, nil
}

func TestJournalRepository_AppendIsIdempotent(t *testing.T) {
	fake := newFakeJournalDAO()
	repo := NewJournalRepository(fake)
	ctx := context.Background()

	evt := domain.DomainEvent{
		ID:         "evt-1",
		Kind:       domain.EventVisitRecorded,
		TeamID:     "team-1",
		StationID:  "station-1",
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Append(ctx, evt))
	// Re-appending the same ID is silently absorbed.
	require.NoError(t, repo.Append(ctx, evt))

	assert.Len(t, fake.records, 1)
	assert.Equal(t, "team:team-1", fake.records["evt-1"].EntityKey)
}

func TestJournalRepository_ReplayRoundTrip(t *testing.T) {
	fake := newFakeJournalDAO()
	repo := NewJournalRepository(fake)
	ctx := context.Background()

	evt := domain.DomainEvent{
		ID:         "evt-1",
		Kind:       domain.EventTeamStatusChanged,
		TeamID:     "team-1",
		TeamStatus: domain.TeamFinished,
		OccurredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Append(ctx, evt))

	events, err := repo.FindUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, evt, events[0])

	require.NoError(t, repo.MarkProcessed(ctx, "evt-1"))
	events, err = repo.FindUnprocessed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
