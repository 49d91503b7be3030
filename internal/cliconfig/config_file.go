package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// and YAML friendly.
type FileConfig struct {
	BaseURL          string  `toml:"base_url" yaml:"base_url"`
	Org              string  `toml:"org" yaml:"org"`
	App              string  `toml:"app" yaml:"app"`
	Collection       string  `toml:"collection" yaml:"collection"`
	ClientID         string  `toml:"client_id" yaml:"client_id"`
	ClientSecret     string  `toml:"client_secret" yaml:"client_secret"`
	Count            int     `toml:"count" yaml:"count"`
	Concurrency      int     `toml:"concurrency" yaml:"concurrency"`
	WriteRate        float64 `toml:"write_rate" yaml:"write_rate"`
	PollInterval     string  `toml:"poll_interval" yaml:"poll_interval"`
	MaxWait          string  `toml:"max_wait" yaml:"max_wait"`
	MaxPolls         int     `toml:"max_polls" yaml:"max_polls"`
	QueryLimit       int     `toml:"query_limit" yaml:"query_limit"`
	MarkerField      string  `toml:"marker_field" yaml:"marker_field"`
	MarkerValue      string  `toml:"marker_value" yaml:"marker_value"`
	TemplateFile     string  `toml:"template" yaml:"template"`
	PurgeMaxAttempts int     `toml:"purge_max_attempts" yaml:"purge_max_attempts"`
	PurgeDelay       string  `toml:"purge_delay" yaml:"purge_delay"`
	SkipPurge        *bool   `toml:"skip_purge" yaml:"skip_purge"`
	HTTPTimeout      string  `toml:"http_timeout" yaml:"http_timeout"`
	LogFile          string  `toml:"log_file" yaml:"log_file"`
	LogMaxSizeMB     int     `toml:"log_max_size" yaml:"log_max_size"`
	LogMaxBackups    int     `toml:"log_max_backups" yaml:"log_max_backups"`
	LogLevel         string  `toml:"log_level" yaml:"log_level"`
	NoStdout         *bool   `toml:"no_stdout" yaml:"no_stdout"`
	ReportDir        string  `toml:"report_dir" yaml:"report_dir"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.indexcheck/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".indexcheck", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-url", fc.BaseURL, &cfg.BaseURL)
	s.setString("org", fc.Org, &cfg.Org)
	s.setString("app", fc.App, &cfg.App)
	s.setString("collection", fc.Collection, &cfg.Collection)
	s.setString("client-id", fc.ClientID, &cfg.ClientID)
	s.setString("client-secret", fc.ClientSecret, &cfg.ClientSecret)
	s.setString("marker-field", fc.MarkerField, &cfg.MarkerField)
	s.setString("marker-value", fc.MarkerValue, &cfg.MarkerValue)
	s.setString("template", fc.TemplateFile, &cfg.TemplateFile)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("report-dir", fc.ReportDir, &cfg.ReportDir)

	if err := s.setDuration("poll-interval", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("max-wait", fc.MaxWait, &cfg.MaxWait); err != nil {
		return err
	}
	if err := s.setDuration("purge-delay", fc.PurgeDelay, &cfg.PurgeDelay); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	s.setFloat("write-rate", fc.WriteRate, &cfg.WriteRate)

	s.setInt("count", fc.Count, &cfg.Count)
	s.setInt("concurrency", fc.Concurrency, &cfg.Concurrency)
	s.setInt("max-polls", fc.MaxPolls, &cfg.MaxPolls)
	s.setInt("query-limit", fc.QueryLimit, &cfg.QueryLimit)
	s.setInt("purge-max-attempts", fc.PurgeMaxAttempts, &cfg.PurgeMaxAttempts)
	s.setInt("log-max-size", fc.LogMaxSizeMB, &cfg.LogMaxSizeMB)
	s.setInt("log-max-backups", fc.LogMaxBackups, &cfg.LogMaxBackups)

	s.setBool("skip-purge", fc.SkipPurge, &cfg.SkipPurge)
	s.setBool("no-stdout", fc.NoStdout, &cfg.NoStdout)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
