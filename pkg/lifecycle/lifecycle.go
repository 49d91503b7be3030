package lifecycle

import "fmt"

// State represents the stage of a run.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateWriting
	StatePolling
	StatePurging
	StateCompleted
	StateFailed
	StateInterrupted
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAuthenticating:
		return "Authenticating"
	case StateWriting:
		return "Writing"
	case StatePolling:
		return "Polling"
	case StatePurging:
		return "Purging"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	case StateInterrupted:
		return "Interrupted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateInterrupted
}

// MarshalText encodes the state by name for reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for c := StateIdle; c <= StateInterrupted; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}
