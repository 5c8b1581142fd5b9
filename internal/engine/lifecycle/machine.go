package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elongilad/scav-hunt-engine/internal/domain"
	"github.com/elongilad/scav-hunt-engine/internal/engine/state"
)

var (
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrNoTeams           = errors.New("cannot start event with no registered teams")
	ErrResetForbidden    = errors.New("reset is not allowed after a team has finished")
)

// transitions is the full legal transition table. Any (phase, action) pair
// not listed fails with ErrInvalidTransition.
var transitions = map[domain.EventPhase]map[domain.PhaseAction]domain.EventPhase{
	domain.PhasePending: {
		domain.ActionStart:  domain.PhaseActive,
		domain.ActionCancel: domain.PhaseCancelled,
	},
	domain.PhaseActive: {
		domain.ActionPause:  domain.PhasePaused,
		domain.ActionFinish: domain.PhaseFinished,
		domain.ActionCancel: domain.PhaseCancelled,
		domain.ActionReset:  domain.PhasePending,
	},
	domain.PhasePaused: {
		domain.ActionResume: domain.PhaseActive,
		domain.ActionFinish: domain.PhaseFinished,
		domain.ActionCancel: domain.PhaseCancelled,
		domain.ActionReset:  domain.PhasePending,
	},
}

// Notifier receives a system notification after every successful transition.
type Notifier func(from, to domain.EventPhase, action domain.PhaseAction)

// Machine owns the event's lifecycle phase. All transitions go through
// Request, which serializes them and applies the cascading side effects.
type Machine struct {
	mu                    sync.Mutex
	store                 *state.Store
	notify                Notifier
	allowResetAfterFinish bool
	log                   *zap.Logger
	now                   func() time.Time
}

func NewMachine(store *state.Store, notify Notifier, allowResetAfterFinish bool, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.L()
	}
	if notify == nil {
		notify = func(domain.EventPhase, domain.EventPhase, domain.PhaseAction) {}
	}

	return &Machine{
		store:                 store,
		notify:                notify,
		allowResetAfterFinish: allowResetAfterFinish,
		log:                   log,
		now:                   time.Now,
	}
}

// Request validates and executes a lifecycle action. On success the new
// phase is returned and a system notification is emitted; on failure the
// phase is unchanged.
func (m *Machine) Request(action domain.PhaseAction) (domain.EventPhase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.store.Phase()
	next, ok := transitions[current][action]
	if !ok {
		return current, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, current)
	}

	now := m.now()

	switch action {
	case domain.ActionStart:
		if m.store.TeamCount() == 0 {
			return current, ErrNoTeams
		}
		m.store.MarkStarted(now)
		m.store.CascadeStart(now)

	case domain.ActionPause, domain.ActionResume:
		// No side effects beyond the transition notification.

	case domain.ActionFinish:
		// Teams finish independently; only the event end time is set.
		m.store.MarkEnded(now)

	case domain.ActionCancel:
		m.store.MarkEnded(now)
		m.store.CascadePauseUnfinished()

	case domain.ActionReset:
		// Destructive: wipes all team progress and visit history.
		if !m.allowResetAfterFinish && m.store.AnyTeamFinished() {
			return current, ErrResetForbidden
		}
		m.store.Reset()
	}

	m.store.SetPhase(next)

	m.log.Info("event phase transition",
		zap.String("action", string(action)),
		zap.String("from", string(current)),
		zap.String("to", string(next)))
	m.notify(current, next, action)

	return next, nil
}
