package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/repository/dao"
)

type NotificationDAO interface {
	Insert(ctx context.Context, record dao.NotificationRecord) (dao.NotificationRecord, error)
	FindAll(ctx context.Context, limit, offset int) ([]dao.NotificationRecord, error)
}

// NotificationRepository is the durable audit trail of published
// notifications. It implements the dispatcher's AuditSink.
type NotificationRepository struct {
	dao NotificationDAO
}

func NewNotificationRepository(notificationDAO NotificationDAO) *NotificationRepository {
	return &NotificationRepository{
		dao: notificationDAO,
	}
}

// Record mirrors a published notification into the audit table. Duplicate
// IDs are ignored so redelivery stays idempotent.
func (r *NotificationRepository) Record(ctx context.Context, n domain.Notification) error {
	targets, err := json.Marshal(n.Targets)
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	record := dao.NotificationRecord{
		ID:             n.ID,
		Kind:           string(n.Kind),
		Classification: string(n.Classification),
		Title:          n.Title,
		Body:           n.Body,
		Targets:        string(targets),
		Pinned:         n.Pinned,
		Urgent:         n.Urgent,
		ExpiresAt:      n.ExpiresAt,
		CreatedAt:      n.CreatedAt,
	}

	if _, err = r.dao.Insert(ctx, record); err != nil {
		if errors.Is(err, dao.ErrNotificationExists) {
			return nil
		}

		return fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return nil
}

// FindAll returns audit entries, newest first.
func (r *NotificationRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.Notification, error) {
	records, err := r.dao.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	notifications := make([]domain.Notification, 0, len(records))
	for _, record := range records {
		var targets []string
		if err = json.Unmarshal([]byte(record.Targets), &targets); err != nil {
			return nil, fmt.Errorf("json.Unmarshal -> %w", err)
		}

		notifications = append(notifications, domain.Notification{
			ID:             record.ID,
			Kind:           domain.NotificationKind(record.Kind),
			Classification: domain.Classification(record.Classification),
			Title:          record.Title,
			Body:           record.Body,
			Targets:        targets,
			Pinned:         record.Pinned,
			Urgent:         record.Urgent,
			ExpiresAt:      record.ExpiresAt,
			CreatedAt:      record.CreatedAt,
		})
	}

	return notifications, nil
}
