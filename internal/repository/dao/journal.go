package dao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrEventExists   = errors.New("event already journaled")
	ErrEventNotFound = errors.New("journaled event not found")
)

// EventRecord is one domain event appended to the durable journal.
type EventRecord struct {
	ID         string    `gorm:"primaryKey"`
	Kind       string    `gorm:"not null;index"`
	EntityKey  string    `gorm:"not null;index"`
	OccurredAt time.Time `gorm:"not null"`
	Payload    string    `gorm:"type:jsonb;not null"`
	Processed  bool      `gorm:"not null;default:false;index"`

	CreatedAt time.Time `gorm:"not null"`
}

type JournalDAO struct {
	db *gorm.DB
}

func NewJournalDAO(db *gorm.DB) *JournalDAO {
	return &JournalDAO{
		db: db,
	}
}

func (d *JournalDAO) Insert(ctx context.Context, record EventRecord) (EventRecord, error) {
	result := d.db.WithContext(ctx).Create(&record)
	if result.Error != nil {
		var err *pgconn.PgError
		if errors.As(result.Error, &err) && err.Code == pgerrcode.UniqueViolation {
			return EventRecord{}, ErrEventExists
		}

		return EventRecord{}, result.Error
	}

	return record, nil
}

func (d *JournalDAO) MarkProcessed(ctx context.Context, eventID string) error {
	result := d.db.WithContext(ctx).
		Model(&EventRecord{}).
		Where("id = ?", eventID).
		Update("processed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEventNotFound
	}

	return nil
}

func (d *JournalDAO) FindUnprocessed(ctx context.Context, limit int) ([]EventRecord, error) {
	var records []EventRecord
	err := d.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}
