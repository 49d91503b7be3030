// Package indexcheck measures index latency of a Usergrid style collection
// store: how long records take to become visible to queries after they were
// written.
//
// Example usage:
//
//	cfg := indexcheck.DefaultConfig()
//	cfg.BaseURL = "http://localhost:8080"
//	cfg.Org = "test-organization"
//	cfg.App = "test-app"
//	rep, err := indexcheck.Run(context.Background(), cfg)
//	if errors.Is(err, indexcheck.ErrConvergenceTimeout) {
//	    log.Printf("%d records never became visible", rep.Convergence.Missing)
//	}
package indexcheck

import (
	"context"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/pkg/indexcheck"
	"github.com/bft-labs/indexcheck/pkg/report"
)

// Config holds the configuration of one run.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = indexcheck.Config

// Report is the summary of one run.
type Report = report.Report

// Errors returned by Run, for use with errors.Is.
var (
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrAuth               = domain.ErrAuth
	ErrConvergenceTimeout = domain.ErrConvergenceTimeout
	ErrInterrupted        = domain.ErrInterrupted
)

// Run executes a single index test with the given configuration.
// It blocks until the records were purged, the convergence budget ran out
// or ctx was canceled.
func Run(ctx context.Context, cfg Config) (Report, error) {
	r, err := indexcheck.New(cfg)
	if err != nil {
		return Report{}, err
	}
	return r.Run(ctx)
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, BaseURL, Org and App must be set before calling Run.
func DefaultConfig() Config {
	return indexcheck.DefaultConfig()
}
