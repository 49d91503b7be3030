package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/indexcheck/pkg/indexcheck"
)

// Log file defaults.
const (
	DefaultLogFile       = "./usergrid_index_test.log"
	DefaultLogMaxSizeMB  = 100
	DefaultLogMaxBackups = 10
	DefaultLogLevel      = "info"
)

// Config holds CLI configuration for indexcheck.
type Config struct {
	BaseURL    string
	Org        string
	App        string
	Collection string

	ClientID     string
	ClientSecret string

	Count        int
	Concurrency  int
	WriteRate    float64
	PollInterval time.Duration
	MaxWait      time.Duration
	MaxPolls     int
	QueryLimit   int

	MarkerField  string
	MarkerValue  string
	TemplateFile string

	PurgeMaxAttempts int
	PurgeDelay       time.Duration
	SkipPurge        bool

	HTTPTimeout time.Duration

	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogLevel      string
	NoStdout      bool

	ReportDir string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	lib := indexcheck.DefaultConfig()
	return Config{
		Count:            lib.Count,
		Concurrency:      lib.Concurrency,
		PollInterval:     lib.PollInterval,
		MaxWait:          lib.MaxWait,
		MarkerField:      lib.MarkerField,
		MarkerValue:      lib.MarkerValue,
		PurgeMaxAttempts: lib.PurgeMaxAttempts,
		HTTPTimeout:      lib.HTTPTimeout,
		LogFile:          DefaultLogFile,
		LogMaxSizeMB:     DefaultLogMaxSizeMB,
		LogMaxBackups:    DefaultLogMaxBackups,
		LogLevel:         DefaultLogLevel,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base-url is required")
	}
	if c.Org == "" {
		return fmt.Errorf("org is required")
	}
	if c.App == "" {
		return fmt.Errorf("app is required")
	}

	// Ensure no trailing slash
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.Count < 0 {
		return fmt.Errorf("count must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.QueryLimit > 0 && c.QueryLimit < c.Count {
		return fmt.Errorf("query-limit %d is below count %d", c.QueryLimit, c.Count)
	}
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return fmt.Errorf("client-id and client-secret must be set together")
	}
	if c.LogFile == "" && c.NoStdout {
		return fmt.Errorf("no-stdout requires a log-file")
	}
	return nil
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	if c.ClientSecret != "" {
		c.ClientSecret = "*****"
	}
	return c
}

// RunConfig converts the CLI configuration into a run configuration,
// loading the payload template file if one is set.
func (c Config) RunConfig() (indexcheck.Config, error) {
	cfg := indexcheck.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.Org = c.Org
	cfg.App = c.App
	cfg.Collection = c.Collection
	cfg.ClientID = c.ClientID
	cfg.ClientSecret = c.ClientSecret
	cfg.Count = c.Count
	cfg.Concurrency = c.Concurrency
	cfg.WriteRate = c.WriteRate
	cfg.PollInterval = c.PollInterval
	cfg.MaxWait = c.MaxWait
	cfg.MaxPolls = c.MaxPolls
	cfg.QueryLimit = c.QueryLimit
	cfg.MarkerField = c.MarkerField
	cfg.MarkerValue = c.MarkerValue
	cfg.PurgeMaxAttempts = c.PurgeMaxAttempts
	cfg.PurgeDelay = c.PurgeDelay
	cfg.SkipPurge = c.SkipPurge
	cfg.HTTPTimeout = c.HTTPTimeout

	if c.TemplateFile != "" {
		tmpl, err := LoadTemplate(c.TemplateFile)
		if err != nil {
			return cfg, fmt.Errorf("load template: %w", err)
		}
		cfg.Template = tmpl
	}
	return cfg, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
