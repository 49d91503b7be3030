package indexcheck

import (
	"github.com/bft-labs/indexcheck/pkg/gateway"
	"github.com/bft-labs/indexcheck/pkg/log"
	"github.com/bft-labs/indexcheck/pkg/report"
)

// Option configures optional behavior of a Runner.
type Option func(*options)

// options holds the optional configuration for a Runner.
type options struct {
	httpClient   gateway.HTTPClient
	logger       log.Logger
	eventHandler EventHandler
	reports      report.Repository
}

// defaultOptions returns options with sensible defaults.
func defaultOptions(client gateway.HTTPClient) options {
	return options{
		httpClient: client,
		logger:     log.NewNoopLogger(),
	}
}

// WithHTTPClient sets a custom HTTP client for store communication.
// If not provided, a client with the configured timeout is used.
func WithHTTPClient(client gateway.HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for run events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithReportRepository persists the run report when the run ends.
func WithReportRepository(repo report.Repository) Option {
	return func(o *options) {
		o.reports = repo
	}
}
