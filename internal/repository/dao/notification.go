package dao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrNotificationExists = errors.New("notification already recorded")

// NotificationRecord is the append-only audit copy of a published
// notification. Targets is a JSON array; empty means broadcast.
type NotificationRecord struct {
	ID             string `gorm:"primaryKey"`
	Kind           string `gorm:"not null"`
	Classification string `gorm:"not null;index"`
	Title          string `gorm:"not null"`
	Body           string
	Targets        string `gorm:"type:jsonb;not null"`
	Pinned         bool   `gorm:"not null"`
	Urgent         bool   `gorm:"not null"`
	ExpiresAt      *time.Time

	CreatedAt time.Time `gorm:"not null;index"`
}

type NotificationDAO struct {
	db *gorm.DB
}

func NewNotificationDAO(db *gorm.DB) *NotificationDAO {
	return &NotificationDAO{
		db: db,
	}
}

func (d *NotificationDAO) Insert(ctx context.Context, record NotificationRecord) (NotificationRecord, error) {
	result := d.db.WithContext(ctx).Create(&record)
	if result.Error != nil {
		var err *pgconn.PgError
		if errors.As(result.Error, &err) && err.Code == pgerrcode.UniqueViolation {
			return NotificationRecord{}, ErrNotificationExists
		}

		return NotificationRecord{}, result.Error
	}

	return record, nil
}

func (d *NotificationDAO) FindAll(ctx context.Context, limit, offset int) ([]NotificationRecord, error) {
	var records []NotificationRecord
	err := d.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}
