package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records engine counters through the global OpenTelemetry meter.
// Without a configured exporter the instruments are no-ops, so the engine
// can always record unconditionally. A nil *Metrics is also safe.
type Metrics struct {
	eventsPublished     metric.Int64Counter
	handlerErrors       metric.Int64Counter
	queueDrops          metric.Int64Counter
	emergencyBroadcasts metric.Int64Counter
}

// NewMetrics creates the engine instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("scav-hunt-engine")

	eventsPublished, err := meter.Int64Counter("engine.bus.events_published",
		metric.WithDescription("Number of domain events accepted by the bus"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("engine.bus.handler_errors",
		metric.WithDescription("Number of subscriber handler errors"),
	)
	if err != nil {
		return nil, err
	}

	queueDrops, err := meter.Int64Counter("engine.dispatch.queue_drops",
		metric.WithDescription("Notifications dropped from full recipient queues"),
	)
	if err != nil {
		return nil, err
	}

	emergencyBroadcasts, err := meter.Int64Counter("engine.dispatch.emergency_broadcasts",
		metric.WithDescription("Number of emergency broadcasts issued"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		eventsPublished:     eventsPublished,
		handlerErrors:       handlerErrors,
		queueDrops:          queueDrops,
		emergencyBroadcasts: emergencyBroadcasts,
	}, nil
}

func (m *Metrics) RecordPublished(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.eventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordHandlerError(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.handlerErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordQueueDrop(ctx context.Context, teamID string) {
	if m == nil {
		return
	}
	m.queueDrops.Add(ctx, 1, metric.WithAttributes(attribute.String("team", teamID)))
}

func (m *Metrics) RecordEmergencyBroadcast(ctx context.Context) {
	if m == nil {
		return
	}
	m.emergencyBroadcasts.Add(ctx, 1)
}
