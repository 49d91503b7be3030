package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/pkg/gateway"
	"github.com/bft-labs/indexcheck/pkg/lifecycle"
	"github.com/bft-labs/indexcheck/pkg/log"
)

// Default poll settings.
const (
	DefaultInterval          = time.Second
	DefaultMaxWait           = 10 * time.Minute
	DefaultFailureBackoffMin = 100 * time.Millisecond
	DefaultFailureBackoffMax = 30 * time.Second

	// missingLogLimit caps the uuids listed in the per-poll info line.
	missingLogLimit = 20
)

// Querier runs one index query. *gateway.Client satisfies this interface.
type Querier interface {
	Query(ctx context.Context, url string) ([]gateway.Entity, error)
}

// Config controls the poll loop.
type Config struct {
	// Interval is the sleep between polls that still miss records.
	Interval time.Duration

	// MaxWait bounds the wall-clock time of the loop. Zero means unbounded.
	MaxWait time.Duration

	// MaxPolls bounds the number of queries. Zero means unbounded.
	MaxPolls int

	// FailureBackoffMin is the first wait after a failed query when Interval
	// is shorter.
	FailureBackoffMin time.Duration

	// FailureBackoffMax caps the wait after consecutive failed queries.
	FailureBackoffMax time.Duration
}

// DefaultConfig returns the default poll settings.
func DefaultConfig() Config {
	return Config{
		Interval:          DefaultInterval,
		MaxWait:           DefaultMaxWait,
		FailureBackoffMin: DefaultFailureBackoffMin,
		FailureBackoffMax: DefaultFailureBackoffMax,
	}
}

// PollEvent describes one completed poll.
type PollEvent struct {
	Poll    int
	Found   int
	Missing int
	Elapsed time.Duration
	Err     error
}

// Poller runs the convergence loop.
type Poller struct {
	cfg     Config
	querier Querier
	logger  log.Logger
	onPoll  func(PollEvent)
}

// Option configures a Poller.
type Option func(*Poller)

// WithOnPoll registers a callback invoked after every poll.
func WithOnPoll(fn func(PollEvent)) Option {
	return func(p *Poller) {
		p.onPoll = fn
	}
}

// New creates a Poller.
func New(querier Querier, cfg Config, logger log.Logger, opts ...Option) *Poller {
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.FailureBackoffMin <= 0 {
		cfg.FailureBackoffMin = DefaultFailureBackoffMin
	}
	if cfg.FailureBackoffMax <= 0 {
		cfg.FailureBackoffMax = DefaultFailureBackoffMax
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	p := &Poller{cfg: cfg, querier: querier, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AwaitConvergence polls queryURL until every uuid of created is returned.
//
// The report is always populated with the last observed state. The error is
// nil on convergence, wraps domain.ErrConvergenceTimeout when a budget ran
// out, and is ctx.Err() when the context ended first.
func (p *Poller) AwaitConvergence(ctx context.Context, created domain.CreatedSet, queryURL string) (domain.ConvergenceReport, error) {
	report := domain.ConvergenceReport{
		Expected: len(created),
		Missing:  len(created),
	}
	p.logger.Info("waiting for indexing", log.Int("expected", len(created)), log.String("url", queryURL))

	start := time.Now()
	failures := lifecycle.NewBackoff(max(p.cfg.Interval, p.cfg.FailureBackoffMin), p.cfg.FailureBackoffMax)
	var deadline <-chan time.Time
	if p.cfg.MaxWait > 0 {
		t := time.NewTimer(p.cfg.MaxWait)
		defer t.Stop()
		deadline = t.C
	}

	for {
		report.Polls++
		entities, err := p.querier.Query(ctx, queryURL)
		report.Elapsed = time.Since(start)

		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.QueryFailures++
			p.logger.Warn("query failed",
				log.Int("poll", report.Polls),
				log.Duration("elapsed", report.Elapsed),
				log.Err(err),
			)
			p.emit(PollEvent{Poll: report.Polls, Found: report.Found, Missing: report.Missing, Elapsed: report.Elapsed, Err: err})

			if len(created) == 0 {
				// Nothing to wait for.
				report.Converged = true
				return report, nil
			}
		} else {
			failures.Reset()
			missing := p.evaluate(created, entities, &report)
			p.emit(PollEvent{Poll: report.Polls, Found: report.Found, Missing: report.Missing, Elapsed: report.Elapsed})

			if len(missing) == 0 {
				report.Converged = true
				p.logger.Info("all records found",
					log.Int("expected", report.Expected),
					log.Int("polls", report.Polls),
					log.Duration("elapsed", report.Elapsed),
				)
				return report, nil
			}

			p.logMissing(missing)
		}

		if p.cfg.MaxPolls > 0 && report.Polls >= p.cfg.MaxPolls {
			return report, p.timeout(report, fmt.Sprintf("%d polls", report.Polls))
		}

		wait := p.cfg.Interval
		if err != nil {
			wait = failures.Next()
		}
		p.logger.Info("records missing, sleeping",
			log.Int("missing", report.Missing),
			log.Duration("elapsed", report.Elapsed),
			log.Duration("sleep", wait),
		)

		if err := p.sleep(ctx, deadline, wait); err != nil {
			report.Elapsed = time.Since(start)
			if err == errDeadline {
				return report, p.timeout(report, p.cfg.MaxWait.String())
			}
			return report, err
		}
	}
}

// evaluate updates the report from one query result and returns the
// records still missing.
func (p *Poller) evaluate(created domain.CreatedSet, entities []gateway.Entity, report *domain.ConvergenceReport) []domain.MissingRecord {
	observed := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if u := e.UUID(); u != "" {
			observed[u] = struct{}{}
		}
	}
	missing := created.Missing(observed)

	report.Missing = len(missing)
	report.Found = len(created) - len(missing)

	p.logger.Info("poll result",
		log.Int("poll", report.Polls),
		log.Int("returned", len(entities)),
		log.Int("found", report.Found),
		log.Int("expected", report.Expected),
		log.Int("missing", report.Missing),
		log.Duration("elapsed", report.Elapsed),
	)
	return missing
}

// logMissing lists the first missing uuids at info and every record at debug.
func (p *Poller) logMissing(missing []domain.MissingRecord) {
	n := min(len(missing), missingLogLimit)
	ids := make([]string, 0, n)
	uuids := make([]string, 0, n)
	for _, m := range missing[:n] {
		ids = append(ids, m.ID)
		uuids = append(uuids, m.UUID)
	}
	p.logger.Info("missing records",
		log.Int("missing", len(missing)),
		log.Strings("uuids", uuids),
		log.Strings("ids", ids),
		log.Bool("truncated", len(missing) > n),
	)
	for _, m := range missing {
		p.logger.Debug("missing record", log.String("uuid", m.UUID), log.String("id", m.ID))
	}
}

func (p *Poller) timeout(report domain.ConvergenceReport, budget string) error {
	p.logger.Error("convergence budget exhausted",
		log.String("budget", budget),
		log.Int("missing", report.Missing),
		log.Int("polls", report.Polls),
		log.Duration("elapsed", report.Elapsed),
	)
	return fmt.Errorf("%w: %d of %d records missing after %s", domain.ErrConvergenceTimeout, report.Missing, report.Expected, budget)
}

func (p *Poller) emit(ev PollEvent) {
	if p.onPoll != nil {
		p.onPoll(ev)
	}
}

var errDeadline = errors.New("max wait exceeded")

func (p *Poller) sleep(ctx context.Context, deadline <-chan time.Time, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return errDeadline
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-deadline:
		return errDeadline
	case <-t.C:
		return nil
	}
}
