package domain

import "errors"

// Domain errors represent error conditions of an indexcheck run.
// They are returned wrapped; check them with errors.Is.
var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("indexcheck: invalid configuration")

	// ErrAuth is returned when the token endpoint rejects the credentials.
	ErrAuth = errors.New("indexcheck: authentication failed")

	// ErrMalformedResponse is returned when a 2xx response body does not have
	// the expected shape.
	ErrMalformedResponse = errors.New("indexcheck: malformed response")

	// ErrConvergenceTimeout is returned when the index did not expose every
	// created record within the configured wait or poll budget.
	ErrConvergenceTimeout = errors.New("indexcheck: convergence timeout")

	// ErrPurgeIncomplete is reported when delete attempts ran out while the
	// store still reported matching records.
	ErrPurgeIncomplete = errors.New("indexcheck: purge incomplete")

	// ErrInterrupted is returned when the run context is canceled.
	ErrInterrupted = errors.New("indexcheck: interrupted")
)
