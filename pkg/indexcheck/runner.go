package indexcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/internal/poller"
	"github.com/bft-labs/indexcheck/internal/purge"
	"github.com/bft-labs/indexcheck/internal/writer"
	"github.com/bft-labs/indexcheck/pkg/gateway"
	"github.com/bft-labs/indexcheck/pkg/lifecycle"
	"github.com/bft-labs/indexcheck/pkg/log"
	"github.com/bft-labs/indexcheck/pkg/report"
)

// Runner executes one index latency run. A Runner is single-use.
type Runner struct {
	config    Config
	opts      options
	logger    log.Logger
	lifecycle *lifecycle.Manager
	client    *gateway.Client
	writer    *writer.Writer
	poller    *poller.Poller
	purger    *purge.Purger
	coords    gateway.Coordinates

	runID    string
	hostname string
	now      func() time.Time
}

// New creates a Runner with the given configuration.
// Returns an error wrapping domain.ErrInvalidConfig if cfg is invalid.
func New(cfg Config, opts ...Option) (*Runner, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.Concurrency
	o := defaultOptions(&http.Client{Timeout: cfg.HTTPTimeout, Transport: transport})
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}

	emitter := &eventEmitter{handler: o.eventHandler}
	client := gateway.New(o.httpClient, log.With(o.logger, log.String("component", "gateway")))

	w := writer.New(client, writer.Config{
		Concurrency:   cfg.Concurrency,
		RatePerSecond: cfg.WriteRate,
		Template:      cfg.Template,
		Marker:        cfg.marker(),
	}, log.With(o.logger, log.String("component", "writer")), writer.WithOnWrite(emitter.onWrite))

	p := poller.New(client, poller.Config{
		Interval:          cfg.PollInterval,
		MaxWait:           cfg.MaxWait,
		MaxPolls:          cfg.MaxPolls,
		FailureBackoffMin: poller.DefaultFailureBackoffMin,
		FailureBackoffMax: poller.DefaultFailureBackoffMax,
	}, log.With(o.logger, log.String("component", "poller")), poller.WithOnPoll(emitter.onPoll))

	pg := purge.New(client, purge.Config{
		MaxAttempts: cfg.PurgeMaxAttempts,
		Delay:       cfg.PurgeDelay,
	}, log.With(o.logger, log.String("component", "purge")))

	return &Runner{
		config:    cfg,
		opts:      o,
		logger:    o.logger,
		lifecycle: lifecycle.NewManager(o.logger, emitter),
		client:    client,
		writer:    w,
		poller:    p,
		purger:    pg,
		coords:    gateway.Coordinates{BaseURL: cfg.BaseURL, Org: cfg.Org, App: cfg.App},
		runID:     newRunID(),
		hostname:  hostname(),
		now:       time.Now,
	}, nil
}

// State returns the current stage of the run.
func (r *Runner) State() lifecycle.State {
	return r.lifecycle.State()
}

// Run executes authenticate, write, converge and purge in order.
//
// The returned Report is populated with everything observed up to the point
// the run ended. The error is nil when every created record became visible,
// wraps domain.ErrConvergenceTimeout when a poll budget ran out, wraps
// domain.ErrInterrupted when ctx ended, and wraps domain.ErrAuth when the
// token request failed.
func (r *Runner) Run(ctx context.Context) (report.Report, error) {
	if s := r.lifecycle.State(); s != lifecycle.StateIdle {
		if s.Terminal() {
			return report.Report{}, fmt.Errorf("%w: runner already used", lifecycle.ErrInvalidTransition)
		}
		return report.Report{}, fmt.Errorf("%w: run in progress (%s)", lifecycle.ErrInvalidTransition, s)
	}

	start := r.now()
	collection := r.config.Collection
	if collection == "" {
		collection = CollectionName(r.hostname, start, r.runID)
	}
	limit := r.config.queryLimit()
	predicate := r.config.marker().Predicate()

	rep := report.Report{
		RunID:      r.runID,
		Collection: collection,
		URL:        r.coords.CollectionURL(collection),
		QueryURL:   r.coords.QueryURL(collection, predicate, limit),
		StartedAt:  start,
		Requested:  r.config.Count,
	}
	logger := log.With(r.logger, log.String("run_id", r.runID), log.String("collection", collection))
	logger.Info("starting index test",
		log.String("url", rep.URL),
		log.Int("count", r.config.Count),
		log.Int("concurrency", r.config.Concurrency),
	)

	err := r.run(ctx, logger, &rep)

	rep.State = r.lifecycle.State()
	rep.FinishedAt = r.now()
	if err != nil {
		rep.Error = err.Error()
	}
	r.save(ctx, logger, rep)
	return rep, err
}

func (r *Runner) run(ctx context.Context, logger log.Logger, rep *report.Report) error {
	if r.config.ClientID != "" {
		r.transition(lifecycle.StateAuthenticating, "requesting token")
		creds := gateway.Credentials{ClientID: r.config.ClientID, ClientSecret: r.config.ClientSecret}
		if _, err := r.client.Authenticate(ctx, r.coords.TokenURL(), creds); err != nil {
			if ctx.Err() != nil {
				return r.interrupted(ctx.Err())
			}
			r.transition(lifecycle.StateFailed, "authentication failed")
			return err
		}
	}

	r.transition(lifecycle.StateWriting, "creating records")
	res, werr := r.writer.WriteAll(ctx, r.config.Count, rep.URL)
	rep.Created = len(res.Created)
	rep.WriteElapsed = report.Duration(res.Elapsed)
	for _, f := range res.Failed() {
		rep.FailedIDs = append(rep.FailedIDs, f.Record.ID)
	}
	rep.WriteFailures = len(rep.FailedIDs)
	if werr != nil {
		return r.interrupted(werr)
	}
	if rep.WriteFailures > 0 {
		logger.Warn("some records were not created",
			log.Int("failed", rep.WriteFailures),
			log.Int("created", rep.Created),
		)
	}

	r.transition(lifecycle.StatePolling, "waiting for indexing")
	conv, perr := r.poller.AwaitConvergence(ctx, res.Created, rep.QueryURL)
	rep.Convergence = conv
	switch {
	case perr == nil:
		logger.Info("all records indexed",
			log.Int("found", conv.Found),
			log.Int("polls", conv.Polls),
			log.Duration("elapsed", conv.Elapsed),
		)
	case errors.Is(perr, domain.ErrConvergenceTimeout):
		logger.Error("records did not become visible", log.Int("missing", conv.Missing), log.Err(perr))
	default:
		return r.interrupted(perr)
	}

	if r.config.SkipPurge {
		logger.Info("leaving records in place")
		return r.finish(perr)
	}

	r.transition(lifecycle.StatePurging, "deleting records")
	purged := r.purger.PurgeAll(ctx, rep.QueryURL)
	if ctx.Err() != nil {
		rep.Purge = &purged
		return r.interrupted(ctx.Err())
	}
	r.purger.Verify(ctx, rep.QueryURL, &purged)
	rep.Purge = &purged
	if purged.Err != nil {
		logger.Warn("purge incomplete", log.Int("deletes", purged.Deletes), log.Err(purged.Err))
	} else {
		logger.Info("purge complete", log.Int("deletes", purged.Deletes), log.Bool("verified", purged.Verified))
	}
	return r.finish(perr)
}

func (r *Runner) finish(err error) error {
	if err != nil {
		r.transition(lifecycle.StateFailed, "convergence timeout")
		return err
	}
	r.transition(lifecycle.StateCompleted, "all records indexed")
	return nil
}

func (r *Runner) interrupted(cause error) error {
	r.transition(lifecycle.StateInterrupted, cause.Error())
	return fmt.Errorf("%w: %w", domain.ErrInterrupted, cause)
}

// transition drives the state machine. The run only requests transitions
// the table allows, so a rejection is logged rather than returned.
func (r *Runner) transition(to lifecycle.State, reason string) {
	if err := r.lifecycle.TransitionTo(to, reason); err != nil {
		r.logger.Error("state transition rejected", log.Err(err))
	}
}

func (r *Runner) save(ctx context.Context, logger log.Logger, rep report.Report) {
	if r.opts.reports == nil {
		return
	}
	if err := r.opts.reports.Save(context.WithoutCancel(ctx), rep); err != nil {
		logger.Error("failed to save report", log.Err(err))
		return
	}
	logger.Debug("report saved")
}
