package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elongilad/scav-hunt-engine/internal/config"
	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/engine/bus"
	"github.com/elongilad/scav-hunt-engine/internal/engine/dispatch"
	"github.com/elongilad/scav-hunt-engine/internal/engine/insight"
	"github.com/elongilad/scav-hunt-engine/internal/engine/lifecycle"
	"github.com/elongilad/scav-hunt-engine/internal/engine/state"
	"github.com/elongilad/scav-hunt-engine/internal/engine/stats"
	"github.com/elongilad/scav-hunt-engine/internal/observability"
)

var (
	ErrValidation           = errors.New("invalid input")
	ErrInvalidTransition    = lifecycle.ErrInvalidTransition
	ErrNoTeams              = lifecycle.ErrNoTeams
	ErrResetForbidden       = lifecycle.ErrResetForbidden
	ErrTeamNotFound         = state.ErrTeamNotFound
	ErrStationNotFound      = state.ErrStationNotFound
	ErrTeamExists           = state.ErrTeamExists
	ErrStationExists        = state.ErrStationExists
	ErrDuplicateSequence    = state.ErrDuplicateSequence
	ErrEventConcluded       = state.ErrEventConcluded
	ErrNotificationNotFound = dispatch.ErrNotificationNotFound
	ErrUnknownTarget        = dispatch.ErrUnknownTarget
	ErrRateLimited          = dispatch.ErrRateLimited
	ErrUndeletable          = dispatch.ErrUndeletable

	// ErrConcurrencyConflict is reserved for future multi-writer
	// deployments; the single-writer-per-entity design never returns it
	// today, but callers can already match on the kind.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// Ack acknowledges an accepted domain event.
type Ack struct {
	EventID    string    `json:"event_id"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// BulkResult reports a bulk station operation. Failed lists the station
// IDs that could not be updated; when non-empty, nothing was applied.
type BulkResult struct {
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}

// NotificationSpec is the organizer-supplied part of a notification.
type NotificationSpec struct {
	Kind           domain.NotificationKind
	Classification domain.Classification
	Title          string
	Body           string
	Targets        []string
	Pinned         bool
	Urgent         bool
	ExpiresAt      *time.Time
}

// Journal is the durable domain event log.
type Journal interface {
	Append(ctx context.Context, evt domain.DomainEvent) error
	MarkProcessed(ctx context.Context, eventID string) error
	FindUnprocessed(ctx context.Context, limit int) ([]domain.DomainEvent, error)
}

// Engine is the orchestration engine facade: the Ingest, Query and Command
// surface the external collaborators (dashboards, control panels, team
// apps) code against. One Engine value orchestrates one live event, so
// partitioning by event ID means running one Engine per event.
type Engine struct {
	store      *state.Store
	bus        *bus.Bus
	machine    *lifecycle.Machine
	stats      *stats.Engine
	insights   *insight.Generator
	dispatcher *dispatch.Dispatcher
	journal    Journal
	log        *zap.Logger
	now        func() time.Time

	seenMu sync.Mutex
	seen   map[string]struct{}
}

// NewEngine wires the engine for a single event. journal and audit may be
// nil to run purely in memory (tests, local development).
func NewEngine(conf *config.EngineConfig, journal Journal, audit dispatch.AuditSink, metrics *observability.Metrics, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.L()
	}
	if conf == nil {
		conf = &config.EngineConfig{}
	}

	eventID := conf.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	store := state.New(domain.Event{
		ID:    eventID,
		Name:  conf.EventName,
		Phase: domain.PhasePending,
	})

	dispatchConf := dispatch.Config{
		Metrics: metrics,
		Logger:  log,
	}
	statsConf := stats.Config{}
	insightThresholds := insight.Thresholds{}
	if conf.QueueCapacity > 0 {
		dispatchConf.QueueCapacity = conf.QueueCapacity
	}
	if conf.Dispatch != nil {
		dispatchConf.MessagesPerMinute = conf.Dispatch.MessagesPerMinute
		dispatchConf.RetryAttempts = conf.Dispatch.RetryAttempts
		dispatchConf.RetryBackoff = conf.Dispatch.RetryBackoff()
	}
	if conf.Congestion != nil {
		statsConf.Congestion = stats.CongestionThresholds{
			Medium:   conf.Congestion.Medium,
			High:     conf.Congestion.High,
			Critical: conf.Congestion.Critical,
		}
	}
	if conf.Insights != nil {
		statsConf.StalledAfter = conf.Insights.StalledAfter()
		insightThresholds = insight.Thresholds{
			LowParticipationBelow: conf.Insights.LowParticipationBelow,
			GoodCompletionAbove:   conf.Insights.GoodCompletionAbove,
			LowCompletionBelow:    conf.Insights.LowCompletionBelow,
			DifficultyAbove:       conf.Insights.DifficultyAbove,
		}
	}

	e := &Engine{
		store:      store,
		stats:      stats.NewEngine(store, statsConf),
		insights:   insight.NewGenerator(insightThresholds),
		dispatcher: dispatch.NewDispatcher(store, audit, dispatchConf),
		journal:    journal,
		log:        log,
		now:        time.Now,
		seen:       make(map[string]struct{}),
	}
	e.machine = lifecycle.NewMachine(store, e.notifyTransition, conf.AllowResetAfterFinish, log)

	e.bus = bus.New(bus.Config{
		DedupeTTL: conf.DedupeTTL(),
		Metrics:   metrics,
		Logger:    log,
	})
	e.bus.Subscribe([]domain.EventKind{
		domain.EventTeamStatusChanged,
		domain.EventVisitRecorded,
		domain.EventVisitClosed,
		domain.EventStationActiveToggled,
	}, func(_ context.Context, evt domain.DomainEvent) error {
		return store.Apply(evt)
	})
	if journal != nil {
		// Registered last so the journal entry is flagged processed only
		// after every other subscriber saw the event.
		e.bus.SubscribeAll(func(ctx context.Context, evt domain.DomainEvent) error {
			return journal.MarkProcessed(ctx, evt.ID)
		})
	}

	return e
}

// Close shuts down the bus (draining accepted events) and the dispatcher.
func (e *Engine) Close() {
	e.bus.Close()
	e.dispatcher.Close()
}

// SubmitEvent is the Ingest API: it validates the event synchronously and
// either rejects it outright or guarantees at-least-once application.
func (e *Engine) SubmitEvent(ctx context.Context, evt domain.DomainEvent) (Ack, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = e.now()
	}

	if !domain.ValidEventKind(evt.Kind) {
		return Ack{}, fmt.Errorf("%w: unknown event kind %q", ErrValidation, evt.Kind)
	}
	if err := e.validate(evt); err != nil {
		return Ack{}, err
	}

	// Resubmitting an already-accepted event ID is acknowledged without
	// re-running its side effects.
	if !e.markSeen(evt.ID) {
		return Ack{EventID: evt.ID, AcceptedAt: e.now()}, nil
	}

	if e.journal != nil {
		if err := e.journal.Append(ctx, evt); err != nil {
			// The in-memory path stays authoritative; a journal outage
			// must not reject live traffic.
			e.log.Error("failed to journal event",
				zap.String("event_id", evt.ID), zap.Error(err))
		}
	}

	// Control-plane kinds take effect synchronously so their errors reach
	// the caller; state kinds are applied in order by the bus workers.
	switch evt.Kind {
	case domain.EventPhaseRequested:
		if _, err := e.machine.Request(evt.Action); err != nil {
			return Ack{}, err
		}
	case domain.EventNotificationCreated, domain.EventMessageSent:
		n := domain.Notification{
			ID:             evt.NotificationID,
			Kind:           domain.KindNotification,
			Classification: domain.ClassGeneral,
			Title:          evt.Title,
			Body:           evt.Body,
		}
		if evt.Kind == domain.EventMessageSent {
			n.Kind = domain.KindMessage
		}
		if evt.TeamID != "" {
			n.Targets = []string{evt.TeamID}
		}
		published, err := e.dispatcher.Publish(ctx, n)
		if err != nil {
			return Ack{}, err
		}
		evt.NotificationID = published.ID
	case domain.EventNotificationRead:
		if err := e.dispatcher.MarkRead(evt.NotificationID, evt.RecipientID); err != nil {
			return Ack{}, err
		}
	}

	if err := e.bus.Publish(ctx, evt); err != nil {
		return Ack{}, fmt.Errorf("e.bus.Publish -> %w", err)
	}

	return Ack{EventID: evt.ID, AcceptedAt: e.now()}, nil
}

// markSeen records the event ID, returning false if it was seen before.
func (e *Engine) markSeen(id string) bool {
	e.seenMu.Lock()
	defer e.seenMu.Unlock()

	if _, ok := e.seen[id]; ok {
		return false
	}
	e.seen[id] = struct{}{}

	return true
}

func (e *Engine) validate(evt domain.DomainEvent) error {
	switch evt.Kind {
	case domain.EventTeamStatusChanged:
		if !domain.ValidTeamStatus(evt.TeamStatus) {
			return fmt.Errorf("%w: unknown team status %q", ErrValidation, evt.TeamStatus)
		}
		if !e.store.HasTeam(evt.TeamID) {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, evt.TeamID)
		}
		if evt.TeamStatus == domain.TeamActive && e.store.Phase() != domain.PhaseActive {
			return fmt.Errorf("%w: team cannot be active while event is %s",
				ErrValidation, e.store.Phase())
		}
	case domain.EventVisitRecorded:
		if !e.store.HasTeam(evt.TeamID) {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, evt.TeamID)
		}
		if _, err := e.store.GetStation(evt.StationID); err != nil {
			return fmt.Errorf("%w: %s", ErrStationNotFound, evt.StationID)
		}
	case domain.EventVisitClosed:
		if !e.store.HasTeam(evt.TeamID) {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, evt.TeamID)
		}
	case domain.EventStationActiveToggled:
		if _, err := e.store.GetStation(evt.StationID); err != nil {
			return fmt.Errorf("%w: %s", ErrStationNotFound, evt.StationID)
		}
	case domain.EventPhaseRequested:
		if evt.Action == "" {
			return fmt.Errorf("%w: missing phase action", ErrValidation)
		}
	case domain.EventMessageSent, domain.EventNotificationCreated:
		if evt.Title == "" && evt.Body == "" {
			return fmt.Errorf("%w: empty message", ErrValidation)
		}
		if evt.TeamID != "" && !e.store.HasTeam(evt.TeamID) {
			return fmt.Errorf("%w: %s", ErrTeamNotFound, evt.TeamID)
		}
	case domain.EventNotificationRead:
		if evt.NotificationID == "" || evt.RecipientID == "" {
			return fmt.Errorf("%w: notification_id and recipient_id are required", ErrValidation)
		}
	}

	return nil
}

// notifyTransition emits the system notification every successful phase
// transition carries. Dispatch retries happen off the transition path.
func (e *Engine) notifyTransition(from, to domain.EventPhase, action domain.PhaseAction) {
	classification := domain.ClassScheduleChange
	urgent := false
	if action == domain.ActionCancel {
		classification = domain.ClassUrgent
		urgent = true
	}

	n := domain.Notification{
		Kind:           domain.KindAnnouncement,
		Classification: classification,
		Title:          fmt.Sprintf("Event %s", action),
		Body:           fmt.Sprintf("Event phase changed from %s to %s", from, to),
		Urgent:         urgent,
	}

	go e.dispatcher.PublishSystem(context.Background(), n)
}

// --- Query API ---

// GetEventState returns the event header with its current phase.
func (e *Engine) GetEventState() domain.Event {
	return e.store.Event()
}

// GetTeamStates returns the latest applied state of every team.
func (e *Engine) GetTeamStates() []domain.Team {
	return e.store.ListTeams()
}

// GetStationStates returns every station in sequence order.
func (e *Engine) GetStationStates() []domain.Station {
	return e.store.ListStations()
}

// GetTeamVisits returns the team's visit history.
func (e *Engine) GetTeamVisits(teamID string) ([]domain.Visit, error) {
	return e.store.TeamVisits(teamID)
}

// GetAggregates computes the current derived metrics. Safe to call
// frequently; it never mutates state.
func (e *Engine) GetAggregates() domain.AggregateSnapshot {
	return e.stats.Snapshot()
}

// GetInsights evaluates the insight rules against current aggregates.
func (e *Engine) GetInsights() []domain.Insight {
	return e.insights.Generate(e.stats.Snapshot())
}

// GetUnread returns the team's unread notifications, including broadcasts
// created before the team registered.
func (e *Engine) GetUnread(teamID string) ([]domain.Notification, error) {
	if !e.store.HasTeam(teamID) {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	return e.dispatcher.Unread(teamID), nil
}

// --- Command API ---

// RequestPhaseTransition executes a lifecycle action.
func (e *Engine) RequestPhaseTransition(ctx context.Context, action domain.PhaseAction) (domain.EventPhase, error) {
	phase, err := e.machine.Request(action)
	if err != nil {
		return phase, err
	}

	evt := domain.DomainEvent{
		ID:         uuid.NewString(),
		Kind:       domain.EventPhaseRequested,
		OccurredAt: e.now(),
		Action:     action,
	}
	if e.journal != nil {
		if err = e.journal.Append(ctx, evt); err != nil {
			e.log.Error("failed to journal phase transition", zap.Error(err))
		}
	}
	if err = e.bus.Publish(ctx, evt); err != nil {
		e.log.Error("failed to publish phase transition event", zap.Error(err))
	}

	return phase, nil
}

// PublishNotification validates and dispatches an organizer notification.
func (e *Engine) PublishNotification(ctx context.Context, spec NotificationSpec) (domain.Notification, error) {
	if spec.Title == "" && spec.Body == "" {
		return domain.Notification{}, fmt.Errorf("%w: empty notification", ErrValidation)
	}
	if spec.Classification != "" && !domain.ValidClassification(spec.Classification) {
		return domain.Notification{}, fmt.Errorf("%w: unknown classification %q",
			ErrValidation, spec.Classification)
	}

	published, err := e.dispatcher.Publish(ctx, domain.Notification{
		Kind:           spec.Kind,
		Classification: spec.Classification,
		Title:          spec.Title,
		Body:           spec.Body,
		Targets:        spec.Targets,
		Pinned:         spec.Pinned,
		Urgent:         spec.Urgent,
		ExpiresAt:      spec.ExpiresAt,
	})
	if err != nil {
		return domain.Notification{}, err
	}

	e.publishNotificationEvent(ctx, domain.EventNotificationCreated, published)

	return published, nil
}

// BroadcastEmergency delivers an emergency announcement to all teams.
func (e *Engine) BroadcastEmergency(ctx context.Context, title, body string) (domain.Notification, error) {
	if title == "" && body == "" {
		return domain.Notification{}, fmt.Errorf("%w: empty emergency message", ErrValidation)
	}

	published, err := e.dispatcher.BroadcastEmergency(ctx, title, body)
	if err != nil {
		return domain.Notification{}, err
	}

	e.publishNotificationEvent(ctx, domain.EventNotificationCreated, published)

	return published, nil
}

func (e *Engine) publishNotificationEvent(ctx context.Context, kind domain.EventKind, n domain.Notification) {
	evt := domain.DomainEvent{
		ID:             uuid.NewString(),
		Kind:           kind,
		OccurredAt:     n.CreatedAt,
		NotificationID: n.ID,
		Title:          n.Title,
		Body:           n.Body,
	}
	if e.journal != nil {
		if err := e.journal.Append(ctx, evt); err != nil {
			e.log.Error("failed to journal notification event", zap.Error(err))
		}
	}
	if err := e.bus.Publish(ctx, evt); err != nil {
		e.log.Error("failed to publish notification event", zap.Error(err))
	}
}

// MarkNotificationRead is idempotent per (notification, recipient).
func (e *Engine) MarkNotificationRead(notificationID, recipientID string) error {
	return e.dispatcher.MarkRead(notificationID, recipientID)
}

// DeleteNotification removes a plain notification by organizer action.
func (e *Engine) DeleteNotification(id string) error {
	return e.dispatcher.Delete(id)
}

// RegisterTeam adds a team to the event.
func (e *Engine) RegisterTeam(name string) (domain.Team, error) {
	if name == "" {
		return domain.Team{}, fmt.Errorf("%w: team name is required", ErrValidation)
	}

	team, err := e.store.RegisterTeam(domain.Team{
		ID:     uuid.NewString(),
		Name:   name,
		Status: domain.TeamWaiting,
	})
	if err != nil {
		return domain.Team{}, fmt.Errorf("e.store.RegisterTeam -> %w", err)
	}

	return team, nil
}

// AddStation adds a station with a unique sequence order.
func (e *Engine) AddStation(station domain.Station) (domain.Station, error) {
	if station.Name == "" {
		return domain.Station{}, fmt.Errorf("%w: station name is required", ErrValidation)
	}
	if station.ID == "" {
		station.ID = uuid.NewString()
	}

	added, err := e.store.AddStation(station)
	if err != nil {
		return domain.Station{}, fmt.Errorf("e.store.AddStation -> %w", err)
	}

	return added, nil
}

// SetStationsActive toggles many stations atomically: either every station
// is updated or none are and the failing IDs are reported.
func (e *Engine) SetStationsActive(ids []string, active bool) (BulkResult, error) {
	if len(ids) == 0 {
		return BulkResult{}, fmt.Errorf("%w: no station ids given", ErrValidation)
	}

	failed, err := e.store.SetStationsActive(ids, active)
	if err != nil {
		return BulkResult{Failed: failed}, err
	}

	return BulkResult{Updated: len(ids)}, nil
}

// AttachStream returns the team's live notification feed.
func (e *Engine) AttachStream(teamID string) (<-chan domain.Notification, error) {
	if !e.store.HasTeam(teamID) {
		return nil, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	return e.dispatcher.Attach(teamID), nil
}

// ReplayJournal republishes events whose fan-out never completed, e.g.
// after a crash between journaling and delivery. Best effort: events
// referencing entities that no longer exist are logged and skipped.
func (e *Engine) ReplayJournal(ctx context.Context, limit int) error {
	if e.journal == nil {
		return nil
	}
	if limit <= 0 {
		limit = 100
	}

	events, err := e.journal.FindUnprocessed(ctx, limit)
	if err != nil {
		return fmt.Errorf("e.journal.FindUnprocessed -> %w", err)
	}

	for _, evt := range events {
		if err = e.validate(evt); err != nil {
			e.log.Warn("skipping unreplayable journal event",
				zap.String("event_id", evt.ID), zap.Error(err))
			continue
		}
		if err = e.bus.Publish(ctx, evt); err != nil {
			return fmt.Errorf("e.bus.Publish -> %w", err)
		}
	}

	return nil
}
