package writer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/pkg/log"
)

// DefaultConcurrency is the number of creates in flight at once.
const DefaultConcurrency = 32

// ErrNotDispatched marks records that were never sent because the run was
// canceled first.
var ErrNotDispatched = errors.New("write not dispatched")

// Creator creates one record and returns the uuid assigned by the store.
// *gateway.Client satisfies this interface.
type Creator interface {
	Create(ctx context.Context, url string, body any) (string, error)
}

// Config controls a bulk write.
type Config struct {
	// Concurrency bounds the creates in flight. Zero means DefaultConcurrency.
	Concurrency int

	// RatePerSecond caps dispatched creates per second. Zero disables the limit.
	RatePerSecond float64

	Template domain.Template
	Marker   domain.Marker
}

// DefaultConfig returns the default write configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: DefaultConcurrency,
		Template:    domain.DefaultTemplate(),
		Marker:      domain.Marker{Field: domain.DefaultMarkerField, Value: domain.DefaultMarkerValue},
	}
}

// Writer fans record creation out over a bounded worker pool.
type Writer struct {
	cfg     Config
	creator Creator
	logger  log.Logger
	limiter *rate.Limiter
	onWrite func(domain.WriteOutcome)
}

// Option configures a Writer.
type Option func(*Writer)

// WithOnWrite registers a callback invoked after every create attempt.
// It is called from worker goroutines and must be safe for concurrent use.
func WithOnWrite(fn func(domain.WriteOutcome)) Option {
	return func(w *Writer) {
		w.onWrite = fn
	}
}

// New creates a Writer.
func New(creator Creator, cfg Config, logger log.Logger, opts ...Option) *Writer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Template == nil {
		cfg.Template = domain.DefaultTemplate()
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	w := &Writer{cfg: cfg, creator: creator, logger: logger}
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteAll creates count records at url.
//
// The returned result always holds one outcome per record and the created
// set of every successful write. A non-nil error is only returned when ctx
// ended before every record was written; the partial result is still valid.
func (w *Writer) WriteAll(ctx context.Context, count int, url string) (domain.WriteResult, error) {
	start := time.Now()
	w.logger.Info("creating records",
		log.Int("count", count),
		log.String("url", url),
		log.Int("concurrency", w.cfg.Concurrency),
	)

	outcomes := make([]domain.WriteOutcome, count)
	for i := range outcomes {
		outcomes[i] = domain.WriteOutcome{
			Record: w.cfg.Template.Build(i+1, w.cfg.Marker),
			Err:    ErrNotDispatched,
		}
	}

	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)

	for i := range outcomes {
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
		// Each goroutine owns exactly one slot of outcomes.
		slot := &outcomes[i]
		g.Go(func() error {
			*slot = w.create(ctx, url, slot.Record)
			return nil
		})
	}
	_ = g.Wait()

	res := domain.WriteResult{
		Outcomes: outcomes,
		Created:  w.collect(outcomes),
		Elapsed:  time.Since(start),
	}

	w.logger.Info("records created",
		log.Int("requested", count),
		log.Int("created", res.Succeeded()),
		log.Int("failed", count-res.Succeeded()),
		log.Duration("elapsed", res.Elapsed),
	)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (w *Writer) create(ctx context.Context, url string, rec domain.Record) domain.WriteOutcome {
	w.logger.Debug("creating record", log.String("id", rec.ID), log.String("url", url))

	uuid, err := w.creator.Create(ctx, url, rec.Payload)
	if err == nil && uuid == "" {
		err = fmt.Errorf("%w: empty uuid", domain.ErrMalformedResponse)
	}
	out := domain.WriteOutcome{Record: rec, UUID: uuid, Err: err}
	if err != nil {
		out.UUID = ""
		w.logger.Error("create failed", log.String("id", rec.ID), log.Err(err))
	} else {
		w.logger.Debug("created record", log.String("id", rec.ID), log.String("uuid", uuid))
	}

	if w.onWrite != nil {
		w.onWrite(out)
	}
	return out
}

// collect builds the created set. A uuid handed out twice keeps the first
// record and turns the later ones into failures so keys stay distinct.
func (w *Writer) collect(outcomes []domain.WriteOutcome) domain.CreatedSet {
	created := make(domain.CreatedSet, len(outcomes))
	for i := range outcomes {
		o := &outcomes[i]
		if !o.OK() {
			continue
		}
		if prev, dup := created[o.UUID]; dup {
			o.Err = fmt.Errorf("%w: uuid %s already assigned to record %s", domain.ErrMalformedResponse, o.UUID, prev.ID)
			w.logger.Error("duplicate uuid", log.String("id", o.Record.ID), log.String("uuid", o.UUID))
			o.UUID = ""
			continue
		}
		created[o.UUID] = o.Record
	}
	return created
}
