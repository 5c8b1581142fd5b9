package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/observability"
)

var (
	ErrUnknownTarget        = errors.New("notification targets an unregistered team")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrRateLimited          = errors.New("message rate limit exceeded")
	ErrDispatcherClosed     = errors.New("dispatcher is closed")
	ErrUndeletable          = errors.New("only plain notifications can be deleted")
)

// TeamRegistry resolves the current recipients. Broadcasts are expanded at
// delivery time, so teams registered after a broadcast still receive it.
type TeamRegistry interface {
	HasTeam(id string) bool
	TeamIDs() []string
}

// AuditSink mirrors published notifications to durable storage.
type AuditSink interface {
	Record(ctx context.Context, n domain.Notification) error
}

// Config tunes dispatcher behavior.
type Config struct {
	// QueueCapacity bounds each recipient's live queue. Default 64.
	QueueCapacity int
	// MessagesPerMinute rate-limits ordinary publishes. Zero disables
	// the limit. The emergency and system paths are exempt.
	MessagesPerMinute int
	// RetryAttempts and RetryBackoff govern system notification retries.
	RetryAttempts int
	RetryBackoff  time.Duration

	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// queue is one recipient's bounded live feed. When full, the oldest entry
// is evicted so the newest notification always gets through.
type queue struct {
	mu sync.Mutex
	ch chan domain.Notification
}

func (q *queue) enqueue(n domain.Notification) (dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case q.ch <- n:
			return dropped
		default:
		}
		select {
		case <-q.ch:
			dropped = true
		default:
		}
	}
}

// Dispatcher fans prioritized notifications out to per-recipient queues.
// Publishing never blocks on a slow recipient; read state is tracked per
// recipient, except for pinned announcements where it is global.
type Dispatcher struct {
	conf     Config
	registry TeamRegistry
	audit    AuditSink
	log      *zap.Logger

	mu            sync.RWMutex
	notifications map[string]domain.Notification
	order         []string
	readBy        map[string]map[string]struct{}
	queues        map[string]*queue

	limitMu     sync.Mutex
	windowStart time.Time
	windowCount int

	closed bool
	now    func() time.Time
	newID  func() string
}

func NewDispatcher(registry TeamRegistry, audit AuditSink, conf Config) *Dispatcher {
	if conf.QueueCapacity <= 0 {
		conf.QueueCapacity = 64
	}
	if conf.RetryAttempts <= 0 {
		conf.RetryAttempts = 3
	}
	if conf.RetryBackoff <= 0 {
		conf.RetryBackoff = 250 * time.Millisecond
	}
	if conf.Logger == nil {
		conf.Logger = zap.L()
	}

	return &Dispatcher{
		conf:          conf,
		registry:      registry,
		audit:         audit,
		log:           conf.Logger,
		notifications: make(map[string]domain.Notification),
		readBy:        make(map[string]map[string]struct{}),
		queues:        make(map[string]*queue),
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
	}
}

// Publish validates the target set, stamps the notification and fans it
// out. Ordinary publishes are subject to the rate limit.
func (d *Dispatcher) Publish(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if err := d.allowOrdinary(); err != nil {
		return domain.Notification{}, err
	}
	return d.publish(ctx, n)
}

// PublishSystem delivers an engine-generated notification (e.g. a phase
// transition). It bypasses the rate limit and retries transient failures
// with doubling backoff; a persistent failure degrades to a locally
// recorded pending notification rather than being lost.
func (d *Dispatcher) PublishSystem(ctx context.Context, n domain.Notification) domain.Notification {
	backoff := d.conf.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= d.conf.RetryAttempts; attempt++ {
		published, err := d.publish(ctx, n)
		if err == nil {
			return published
		}
		lastErr = err
		d.log.Warn("system notification dispatch failed",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < d.conf.RetryAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	pending := d.recordPending(n)
	d.log.Error("system notification degraded to pending",
		zap.String("notification_id", pending.ID),
		zap.Error(lastErr))

	return pending
}

// BroadcastEmergency is the distinguished high-priority path: it always
// targets all teams regardless of any supplied target set, is exempt from
// rate limiting, and is tagged for distinct downstream alerting.
func (d *Dispatcher) BroadcastEmergency(ctx context.Context, title, body string) (domain.Notification, error) {
	n := domain.Notification{
		Kind:           domain.KindAnnouncement,
		Classification: domain.ClassEmergency,
		Title:          title,
		Body:           body,
		Targets:        nil,
		Pinned:         true,
		Urgent:         true,
	}

	published, err := d.publish(ctx, n)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("d.publish -> %w", err)
	}
	d.conf.Metrics.RecordEmergencyBroadcast(ctx)

	return published, nil
}

func (d *Dispatcher) publish(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	for _, target := range n.Targets {
		if !d.registry.HasTeam(target) {
			return domain.Notification{}, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
		}
	}

	if n.Kind == "" {
		n.Kind = domain.KindNotification
	}
	if n.Classification == "" {
		n.Classification = domain.ClassGeneral
	}
	if n.ID == "" {
		n.ID = d.newID()
	}
	n.CreatedAt = d.now()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.Notification{}, ErrDispatcherClosed
	}
	d.record(n)
	d.mu.Unlock()

	recipients := n.Targets
	if n.Broadcast() {
		recipients = d.registry.TeamIDs()
	}
	for _, recipient := range recipients {
		if d.queueFor(recipient).enqueue(n) {
			d.conf.Metrics.RecordQueueDrop(ctx, recipient)
			d.log.Warn("recipient queue full, dropped oldest notification",
				zap.String("team_id", recipient))
		}
	}

	if d.audit != nil {
		if err := d.audit.Record(ctx, n); err != nil {
			d.log.Error("failed to record notification audit entry",
				zap.String("notification_id", n.ID),
				zap.Error(err))
		}
	}

	return n, nil
}

// record stores the notification; callers hold d.mu.
func (d *Dispatcher) record(n domain.Notification) {
	if _, ok := d.notifications[n.ID]; ok {
		return
	}
	d.notifications[n.ID] = n
	d.order = append(d.order, n.ID)
	d.readBy[n.ID] = make(map[string]struct{})
}

func (d *Dispatcher) recordPending(n domain.Notification) domain.Notification {
	if n.ID == "" {
		n.ID = d.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}

	d.mu.Lock()
	d.record(n)
	d.mu.Unlock()

	return n
}

// MarkRead records that the recipient has seen the notification. It is
// idempotent. For pinned announcements the read state is global.
func (d *Dispatcher) MarkRead(notificationID, recipientID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.notifications[notificationID]
	if !ok {
		return ErrNotificationNotFound
	}

	key := recipientID
	if n.Kind == domain.KindAnnouncement && n.Pinned {
		key = "*"
	}
	d.readBy[notificationID][key] = struct{}{}

	return nil
}

// Unread returns the recipient's unread notifications in creation order.
// Broadcasts are matched here, at read time, so a team registered after a
// broadcast was created still sees it.
func (d *Dispatcher) Unread(recipientID string) []domain.Notification {
	now := d.now()

	d.mu.RLock()
	defer d.mu.RUnlock()

	var unread []domain.Notification
	for _, id := range d.order {
		n := d.notifications[id]
		if !n.Targeted(recipientID) || n.Expired(now) {
			continue
		}
		readers := d.readBy[id]
		if _, ok := readers[recipientID]; ok {
			continue
		}
		if _, ok := readers["*"]; ok {
			continue
		}
		unread = append(unread, n)
	}

	return unread
}

// Notifications returns every recorded notification in creation order.
func (d *Dispatcher) Notifications() []domain.Notification {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := make([]domain.Notification, 0, len(d.order))
	for _, id := range d.order {
		all = append(all, d.notifications[id])
	}

	return all
}

// Get returns a notification by ID.
func (d *Dispatcher) Get(id string) (domain.Notification, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n, ok := d.notifications[id]
	if !ok {
		return domain.Notification{}, ErrNotificationNotFound
	}
	return n, nil
}

// Delete removes a plain notification by explicit organizer action.
// Announcements and messages are an append-only audit trail.
func (d *Dispatcher) Delete(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	if n.Kind != domain.KindNotification {
		return ErrUndeletable
	}

	delete(d.notifications, id)
	delete(d.readBy, id)
	for i, ordered := range d.order {
		if ordered == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}

	return nil
}

// Attach returns the recipient's live queue for streaming delivery.
func (d *Dispatcher) Attach(teamID string) <-chan domain.Notification {
	return d.queueFor(teamID).ch
}

// Close stops accepting publishes. Queued notifications remain readable.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *Dispatcher) queueFor(teamID string) *queue {
	d.mu.RLock()
	q, ok := d.queues[teamID]
	d.mu.RUnlock()
	if ok {
		return q
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if q, ok = d.queues[teamID]; ok {
		return q
	}

	q = &queue{ch: make(chan domain.Notification, d.conf.QueueCapacity)}
	d.queues[teamID] = q

	return q
}

// allowOrdinary enforces the per-minute window on ordinary publishes.
func (d *Dispatcher) allowOrdinary() error {
	if d.conf.MessagesPerMinute <= 0 {
		return nil
	}

	d.limitMu.Lock()
	defer d.limitMu.Unlock()

	now := d.now()
	if now.Sub(d.windowStart) >= time.Minute {
		d.windowStart = now
		d.windowCount = 0
	}
	if d.windowCount >= d.conf.MessagesPerMinute {
		return ErrRateLimited
	}
	d.windowCount++

	return nil
}
