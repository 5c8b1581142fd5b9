package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/observability"
)

var ErrBusClosed = errors.New("event bus is closed")

// Handler processes a domain event. Handlers for the same entity key are
// invoked sequentially in submission order; handlers must be idempotent
// under duplicate delivery of the same event ID.
type Handler func(ctx context.Context, evt domain.DomainEvent) error

// Config tunes bus behavior.
type Config struct {
	// BufferSize is the queue depth per entity worker. Default 256.
	BufferSize int
	// DedupeTTL is the window within which a repeated event ID is
	// silently suppressed. Zero disables deduplication.
	DedupeTTL time.Duration

	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// Subscription is an active handler registration.
type Subscription struct {
	id      int64
	kinds   map[domain.EventKind]struct{}
	all     bool
	handler Handler
	bus     *Bus
}

// Unsubscribe removes the subscription; no further events are delivered.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	for i, sub := range s.bus.subs {
		if sub.id == s.id {
			s.bus.subs = append(s.bus.subs[:i], s.bus.subs[i+1:]...)
			return
		}
	}
}

// Bus is the in-process domain event bus. Delivery is causally ordered per
// entity key: one worker goroutine per key drains a FIFO queue and invokes
// every matching subscriber synchronously. Different keys run concurrently.
type Bus struct {
	conf Config
	log  *zap.Logger

	mu      sync.RWMutex
	subs    []*Subscription
	workers map[string]chan domain.DomainEvent

	dedupeMu sync.Mutex
	dedupe   map[string]time.Time

	nextID  atomic.Int64
	closed  atomic.Bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

func New(conf Config) *Bus {
	if conf.BufferSize <= 0 {
		conf.BufferSize = 256
	}
	if conf.Logger == nil {
		conf.Logger = zap.L()
	}

	b := &Bus{
		conf:    conf,
		log:     conf.Logger,
		workers: make(map[string]chan domain.DomainEvent),
		closeCh: make(chan struct{}),
	}
	if conf.DedupeTTL > 0 {
		b.dedupe = make(map[string]time.Time)
		b.wg.Add(1)
		go b.cleanupDedupe()
	}

	return b
}

// Subscribe registers a handler for the given event kinds.
func (b *Bus) Subscribe(kinds []domain.EventKind, h Handler) *Subscription {
	set := make(map[domain.EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return b.subscribe(&Subscription{kinds: set, handler: h})
}

// SubscribeAll registers a handler for every event kind.
func (b *Bus) SubscribeAll(h Handler) *Subscription {
	return b.subscribe(&Subscription{all: true, handler: h})
}

func (b *Bus) subscribe(sub *Subscription) *Subscription {
	sub.id = b.nextID.Add(1)
	sub.bus = b

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub
}

// Publish enqueues the event for delivery to all matching subscribers.
// It is fire-and-forget for the caller: delivery happens on the entity
// worker. Publish blocks only if the entity's queue is full.
func (b *Bus) Publish(ctx context.Context, evt domain.DomainEvent) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	if b.dedupe != nil && b.isDuplicate(evt.ID) {
		return nil
	}

	queue := b.workerQueue(evt.EntityKey())

	select {
	case queue <- evt:
		b.conf.Metrics.RecordPublished(ctx, string(evt.Kind))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closeCh:
		return ErrBusClosed
	}
}

// Close stops all workers after draining queued events.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	close(b.closeCh)
	b.wg.Wait()
}

func (b *Bus) workerQueue(key string) chan domain.DomainEvent {
	b.mu.RLock()
	queue, ok := b.workers[key]
	b.mu.RUnlock()
	if ok {
		return queue
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if queue, ok = b.workers[key]; ok {
		return queue
	}

	queue = make(chan domain.DomainEvent, b.conf.BufferSize)
	b.workers[key] = queue

	b.wg.Add(1)
	go b.runWorker(queue)

	return queue
}

func (b *Bus) runWorker(queue chan domain.DomainEvent) {
	defer b.wg.Done()

	for {
		select {
		case evt := <-queue:
			b.deliver(evt)
		case <-b.closeCh:
			// Drain what was accepted before shutdown.
			for {
				select {
				case evt := <-queue:
					b.deliver(evt)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(evt domain.DomainEvent) {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.all {
			subs = append(subs, sub)
			continue
		}
		if _, ok := sub.kinds[evt.Kind]; ok {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	ctx := context.Background()
	for _, sub := range subs {
		if err := sub.handler(ctx, evt); err != nil {
			b.conf.Metrics.RecordHandlerError(ctx, string(evt.Kind))
			b.log.Error("event handler failed",
				zap.String("event_id", evt.ID),
				zap.String("kind", string(evt.Kind)),
				zap.Error(err))
		}
	}
}

func (b *Bus) isDuplicate(eventID string) bool {
	b.dedupeMu.Lock()
	defer b.dedupeMu.Unlock()

	if seen, ok := b.dedupe[eventID]; ok && time.Since(seen) < b.conf.DedupeTTL {
		return true
	}
	b.dedupe[eventID] = time.Now()

	return false
}

func (b *Bus) cleanupDedupe() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.conf.DedupeTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.dedupeMu.Lock()
			for id, seen := range b.dedupe {
				if time.Since(seen) >= b.conf.DedupeTTL {
					delete(b.dedupe, id)
				}
			}
			b.dedupeMu.Unlock()
		case <-b.closeCh:
			return
		}
	}
}
