package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/repository/dao"
)

var (
	ErrEventNotFound = dao.ErrEventNotFound
)

type JournalDAO interface {
	Insert(ctx context.Context, record dao.EventRecord) (dao.EventRecord, error)
	MarkProcessed(ctx context.Context, eventID string) error
	FindUnprocessed(ctx context.Context, limit int) ([]dao.EventRecord, error)
}

// JournalRepository persists the append-only domain event journal. Events
// remain flagged unprocessed until the bus has fanned them out.
type JournalRepository struct {
	dao JournalDAO
}

func NewJournalRepository(journalDAO JournalDAO) *JournalRepository {
	return &JournalRepository{
		dao: journalDAO,
	}
}

// Append journals an accepted event. Re-appending the same event ID is a
// no-op, keeping the journal idempotent under at-least-once submission.
func (r *JournalRepository) Append(ctx context.Context, evt domain.DomainEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	record := dao.EventRecord{
		ID:         evt.ID,
		Kind:       string(evt.Kind),
		EntityKey:  evt.EntityKey(),
		OccurredAt: evt.OccurredAt,
		Payload:    string(payload),
	}

	if _, err = r.dao.Insert(ctx, record); err != nil {
		if errors.Is(err, dao.ErrEventExists) {
			return nil
		}

		return fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return nil
}

// MarkProcessed flags the event as fanned out.
func (r *JournalRepository) MarkProcessed(ctx context.Context, eventID string) error {
	if err := r.dao.MarkProcessed(ctx, eventID); err != nil {
		return fmt.Errorf("r.dao.MarkProcessed -> %w", err)
	}

	return nil
}

// FindUnprocessed returns journaled events that never completed fan-out,
// oldest first, for replay after a restart.
func (r *JournalRepository) FindUnprocessed(ctx context.Context, limit int) ([]domain.DomainEvent, error) {
	records, err := r.dao.FindUnprocessed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindUnprocessed -> %w", err)
	}

	events := make([]domain.DomainEvent, 0, len(records))
	for _, record := range records {
		var evt domain.DomainEvent
		if err = json.Unmarshal([]byte(record.Payload), &evt); err != nil {
			return nil, fmt.Errorf("json.Unmarshal -> %w", err)
		}
		events = append(events, evt)
	}

	return events, nil
}
