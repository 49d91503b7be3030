// Package lifecycle tracks the stage of an indexcheck run.
//
// A run moves strictly forward through its stages and ends in exactly one
// terminal state:
//
//	manager := lifecycle.NewManager(logger, emitter)
//	_ = manager.TransitionTo(lifecycle.StateWriting, "bulk write")
//
// # State Machine
//
// Valid state transitions:
//   - Idle -> Authenticating, Writing
//   - Authenticating -> Writing, Failed, Interrupted
//   - Writing -> Polling, Failed, Interrupted
//   - Polling -> Purging, Completed, Failed, Interrupted
//   - Purging -> Completed, Failed, Interrupted
//   - Completed, Failed, Interrupted are terminal
//
// A convergence timeout still purges what was written, so Failed is reached
// from Purging in that case. Completed is reached from Polling when the purge
// stage is disabled.
//
// The package also provides Backoff, the exponential wait used between
// consecutive failed queries.
package lifecycle
