package report

import (
	"context"
	"time"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/pkg/lifecycle"
)

// Report is the persisted summary of one run.
type Report struct {
	RunID      string          `json:"run_id"`
	Collection string          `json:"collection"`
	URL        string          `json:"url"`
	QueryURL   string          `json:"query_url"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	State      lifecycle.State `json:"state"`

	Requested     int      `json:"requested"`
	Created       int      `json:"created"`
	WriteFailures int      `json:"write_failures"`
	FailedIDs     []string `json:"failed_ids,omitempty"`
	WriteElapsed  Duration `json:"write_elapsed"`

	Convergence domain.ConvergenceReport `json:"convergence"`
	Purge       *domain.PurgeReport      `json:"purge,omitempty"`

	Error string `json:"error,omitempty"`
}

// Duration marshals as a Go duration string.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Repository stores run reports.
type Repository interface {
	// Save persists the report atomically.
	Save(ctx context.Context, r Report) error

	// Load returns the report saved for collection.
	Load(ctx context.Context, collection string) (Report, error)
}
