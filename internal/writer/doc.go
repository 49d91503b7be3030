// Package writer creates the record set of a run.
//
// WriteAll builds records 1..N from a payload template, dispatches one create
// per record over a bounded pool of goroutines and collects a per-record
// outcome. Failed writes are logged and left out of the created set; they
// never abort the batch and are not retried.
package writer
