package indexcheck

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/internal/poller"
	"github.com/bft-labs/indexcheck/internal/purge"
	"github.com/bft-labs/indexcheck/internal/writer"
)

// Run defaults.
const (
	DefaultCount        = 999
	DefaultHTTPTimeout  = 30 * time.Second
	collectionTimestamp = "06x01x02x15x04x05"
)

// Config holds the configuration of one run. It is read-only once New
// returns.
type Config struct {
	BaseURL string
	Org     string
	App     string

	// Collection is derived from the hostname and start time when empty.
	Collection string

	ClientID     string
	ClientSecret string

	Count       int
	Concurrency int
	WriteRate   float64

	PollInterval time.Duration
	MaxWait      time.Duration
	MaxPolls     int

	// QueryLimit is the limit parameter of the query URL. Zero means Count.
	// A value below Count could never observe every record and is rejected.
	QueryLimit int

	MarkerField string
	MarkerValue string
	Template    domain.Template

	PurgeMaxAttempts int
	PurgeDelay       time.Duration
	SkipPurge        bool

	HTTPTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
// BaseURL, Org and App must be set before calling New.
func DefaultConfig() Config {
	return Config{
		Count:            DefaultCount,
		Concurrency:      writer.DefaultConcurrency,
		PollInterval:     poller.DefaultInterval,
		MaxWait:          poller.DefaultMaxWait,
		MarkerField:      domain.DefaultMarkerField,
		MarkerValue:      domain.DefaultMarkerValue,
		PurgeMaxAttempts: purge.DefaultMaxAttempts,
		HTTPTimeout:      DefaultHTTPTimeout,
	}
}

// SetDefaults fills zero values that have a sensible default.
func (c *Config) SetDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = writer.DefaultConcurrency
	}
	if c.MarkerField == "" {
		c.MarkerField = domain.DefaultMarkerField
	}
	if c.MarkerValue == "" {
		c.MarkerValue = domain.DefaultMarkerValue
	}
	if c.Template == nil {
		c.Template = domain.DefaultTemplate()
	}
	if c.PurgeMaxAttempts <= 0 {
		c.PurgeMaxAttempts = purge.DefaultMaxAttempts
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url is required", domain.ErrInvalidConfig)
	}
	if c.Org == "" {
		return fmt.Errorf("%w: org is required", domain.ErrInvalidConfig)
	}
	if c.App == "" {
		return fmt.Errorf("%w: app is required", domain.ErrInvalidConfig)
	}
	if c.Count < 0 {
		return fmt.Errorf("%w: count must be non-negative", domain.ErrInvalidConfig)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval must be non-negative", domain.ErrInvalidConfig)
	}
	if c.MaxWait < 0 || c.MaxPolls < 0 {
		return fmt.Errorf("%w: max wait and max polls must be non-negative", domain.ErrInvalidConfig)
	}
	if c.WriteRate < 0 {
		return fmt.Errorf("%w: write rate must be non-negative", domain.ErrInvalidConfig)
	}
	if c.QueryLimit < 0 {
		return fmt.Errorf("%w: query limit must be non-negative", domain.ErrInvalidConfig)
	}
	if c.QueryLimit > 0 && c.QueryLimit < c.Count {
		return fmt.Errorf("%w: query limit %d is below record count %d", domain.ErrInvalidConfig, c.QueryLimit, c.Count)
	}
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return fmt.Errorf("%w: client id and client secret must be set together", domain.ErrInvalidConfig)
	}
	return c.marker().Validate()
}

func (c Config) marker() domain.Marker {
	return domain.Marker{Field: c.MarkerField, Value: c.MarkerValue}
}

// queryLimit returns the limit used for query and delete URLs.
func (c Config) queryLimit() int {
	if c.QueryLimit > c.Count {
		return c.QueryLimit
	}
	return c.Count
}

// CollectionName returns a collection name unique to host, start time and
// run id, e.g. "build-7-index-test-26x10x14x09x30x00-1f2e3d4c".
func CollectionName(host string, start time.Time, runID string) string {
	host = sanitize(host)
	if host == "" {
		host = "unknown"
	}
	suffix := strings.ReplaceAll(runID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%s-index-test-%s-%s", host, start.Format(collectionTimestamp), suffix)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == '.' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func newRunID() string {
	return uuid.NewString()
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
