package indexcheck

import (
	"time"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/internal/poller"
	"github.com/bft-labs/indexcheck/pkg/lifecycle"
)

// EventHandler receives run events.
type EventHandler interface {
	// OnStateChange is called on every stage transition.
	OnStateChange(StateChangeEvent)

	// OnWrite is called after every create attempt, from worker goroutines.
	OnWrite(WriteEvent)

	// OnPoll is called after every convergence poll.
	OnPoll(PollEvent)
}

// StateChangeEvent describes a stage transition.
type StateChangeEvent struct {
	Previous lifecycle.State
	Current  lifecycle.State
	Reason   string
}

// WriteEvent describes one create attempt.
type WriteEvent struct {
	ID   string
	UUID string
	Err  error
}

// PollEvent describes one convergence poll.
type PollEvent struct {
	Poll    int
	Found   int
	Missing int
	Elapsed time.Duration
	Err     error
}

// eventEmitter adapts EventHandler to the internal callbacks.
type eventEmitter struct {
	handler EventHandler
}

func (e *eventEmitter) OnStateChange(previous, current lifecycle.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{Previous: previous, Current: current, Reason: reason})
}

func (e *eventEmitter) onWrite(o domain.WriteOutcome) {
	if e.handler == nil {
		return
	}
	e.handler.OnWrite(WriteEvent{ID: o.Record.ID, UUID: o.UUID, Err: o.Err})
}

func (e *eventEmitter) onPoll(ev poller.PollEvent) {
	if e.handler == nil {
		return
	}
	e.handler.OnPoll(PollEvent{Poll: ev.Poll, Found: ev.Found, Missing: ev.Missing, Elapsed: ev.Elapsed, Err: ev.Err})
}
