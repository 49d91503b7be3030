// Package purge removes the records of a run from the store.
package purge

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/pkg/gateway"
	"github.com/bft-labs/indexcheck/pkg/lifecycle"
	"github.com/bft-labs/indexcheck/pkg/log"
)

// DefaultMaxAttempts bounds the delete calls of one purge.
const DefaultMaxAttempts = 100

// Store is the subset of the gateway client the purge loop needs.
type Store interface {
	Delete(ctx context.Context, url string) (int, error)
	Query(ctx context.Context, url string) ([]gateway.Entity, error)
}

// Config controls the purge loop.
type Config struct {
	// MaxAttempts bounds the delete calls. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Delay is slept between delete calls.
	Delay time.Duration
}

// Purger deletes matching records until the store reports none left.
type Purger struct {
	cfg    Config
	store  Store
	logger log.Logger
}

// New creates a Purger.
func New(store Store, cfg Config, logger log.Logger) *Purger {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Purger{cfg: cfg, store: store, logger: logger}
}

// PurgeAll repeats a delete-by-query against deleteURL until a response
// reports zero matching records. A failed delete stops the loop; so does
// running out of attempts. Neither is fatal: the failure is carried in the
// report's Err.
func (p *Purger) PurgeAll(ctx context.Context, deleteURL string) domain.PurgeReport {
	var report domain.PurgeReport

	for report.Deletes < p.cfg.MaxAttempts {
		p.logger.Info("deleting", log.String("url", deleteURL), log.Int("attempt", report.Deletes+1))

		remaining, err := p.store.Delete(ctx, deleteURL)
		report.Deletes++
		if err != nil {
			p.logger.Error("delete failed", log.String("url", deleteURL), log.Err(err))
			return withErr(report, fmt.Errorf("delete: %w", err))
		}

		report.Remaining = remaining
		if remaining == 0 {
			p.logger.Info("purge complete", log.Int("deletes", report.Deletes))
			return report
		}

		p.logger.Debug("records remaining", log.Int("remaining", remaining))
		if err := lifecycle.Sleep(ctx, p.cfg.Delay); err != nil {
			return withErr(report, err)
		}
	}

	p.logger.Warn("purge attempts exhausted",
		log.Int("deletes", report.Deletes),
		log.Int("remaining", report.Remaining),
	)
	return withErr(report, fmt.Errorf("%w: %d records still matched after %d deletes",
		domain.ErrPurgeIncomplete, report.Remaining, report.Deletes))
}

// Verify queries queryURL once and records whether anything still matches.
// A non-empty result or a failed query is logged as a warning.
func (p *Purger) Verify(ctx context.Context, queryURL string, report *domain.PurgeReport) {
	entities, err := p.store.Query(ctx, queryURL)
	if err != nil {
		p.logger.Warn("purge verification query failed", log.Err(err))
		report.Verified = false
		return
	}
	if len(entities) != 0 {
		p.logger.Warn("records remain after purge", log.Int("remaining", len(entities)))
		report.Remaining = len(entities)
		report.Verified = false
		return
	}
	report.Verified = true
}

func withErr(report domain.PurgeReport, err error) domain.PurgeReport {
	report.Err = err
	report.Error = err.Error()
	return report
}
