package lifecycle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/indexcheck/pkg/log"
)

// ErrInvalidTransition is returned for a transition the state machine forbids.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State][]State{
	StateIdle:           {StateAuthenticating, StateWriting},
	StateAuthenticating: {StateWriting, StateFailed, StateInterrupted},
	StateWriting:        {StatePolling, StateFailed, StateInterrupted},
	StatePolling:        {StatePurging, StateCompleted, StateFailed, StateInterrupted},
	StatePurging:        {StateCompleted, StateFailed, StateInterrupted},
}

// Manager implements the run state machine.
type Manager struct {
	mu           sync.RWMutex
	state        State
	logger       log.Logger
	eventEmitter EventEmitter
}

// NewManager creates a new lifecycle manager in StateIdle.
func NewManager(logger log.Logger, emitter EventEmitter) *Manager {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Manager{
		state:        StateIdle,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Manager) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionTo attempts to transition to a new state.
// Returns an error wrapping ErrInvalidTransition if the transition is not valid.
func (l *Manager) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if !CanTransition(oldState, newState) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldState, newState)
	}
	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)

	return nil
}
