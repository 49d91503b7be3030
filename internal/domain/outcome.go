package domain

import "time"

// WriteOutcome is the result of creating one record.
type WriteOutcome struct {
	Record Record
	UUID   string
	Err    error
}

// OK reports whether the write succeeded.
func (o WriteOutcome) OK() bool {
	return o.Err == nil && o.UUID != ""
}

// WriteResult is the result of a bulk write.
type WriteResult struct {
	// Outcomes holds one entry per dispatched record, in logical id order.
	Outcomes []WriteOutcome

	// Created holds the successful writes keyed by uuid.
	Created CreatedSet

	// Elapsed is the wall-clock time of the whole batch.
	Elapsed time.Duration
}

// Failed returns the outcomes that did not produce a record.
func (r WriteResult) Failed() []WriteOutcome {
	var failed []WriteOutcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded returns the number of records in the created set.
func (r WriteResult) Succeeded() int {
	return len(r.Created)
}

// ConvergenceReport summarizes a poll loop.
type ConvergenceReport struct {
	Expected      int           `json:"expected"`
	Found         int           `json:"found"`
	Missing       int           `json:"missing"`
	Polls         int           `json:"polls"`
	QueryFailures int           `json:"query_failures"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	Converged     bool          `json:"converged"`
}

// PurgeReport summarizes a purge loop.
type PurgeReport struct {
	Deletes   int    `json:"deletes"`
	Remaining int    `json:"remaining"`
	Verified  bool   `json:"verified"`
	Err       error  `json:"-"`
	Error     string `json:"error,omitempty"`
}
