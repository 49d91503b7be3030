// Package poller waits for the index to expose every created record.
//
// Each poll issues one query, subtracts the observed uuids from the created
// set and either finishes (nothing missing) or sleeps for the poll interval
// and tries again. A failed query counts as no progress. The loop is bounded
// by an optional wall-clock budget and an optional poll budget; exhausting
// either yields domain.ErrConvergenceTimeout.
package poller
