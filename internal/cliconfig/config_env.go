package cliconfig

import "os"

// EnvPrefix is the prefix of every environment variable read by ApplyEnvConfig.
const EnvPrefix = "INDEXCHECK_"

// ApplyEnvConfig applies INDEXCHECK_* environment variables to cfg.
// Values override the config file but never a flag that was set explicitly.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("base-url", env("BASE_URL"), &cfg.BaseURL)
	s.setString("org", env("ORG"), &cfg.Org)
	s.setString("app", env("APP"), &cfg.App)
	s.setString("collection", env("COLLECTION"), &cfg.Collection)
	s.setString("client-id", env("CLIENT_ID"), &cfg.ClientID)
	s.setString("client-secret", env("CLIENT_SECRET"), &cfg.ClientSecret)
	s.setString("marker-field", env("MARKER_FIELD"), &cfg.MarkerField)
	s.setString("marker-value", env("MARKER_VALUE"), &cfg.MarkerValue)
	s.setString("template", env("TEMPLATE"), &cfg.TemplateFile)
	s.setString("log-file", env("LOG_FILE"), &cfg.LogFile)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("report-dir", env("REPORT_DIR"), &cfg.ReportDir)

	if err := s.setDuration("poll-interval", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("max-wait", env("MAX_WAIT"), &cfg.MaxWait); err != nil {
		return err
	}
	if err := s.setDuration("purge-delay", env("PURGE_DELAY"), &cfg.PurgeDelay); err != nil {
		return err
	}
	if err := s.setDuration("timeout", env("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setFloatFromString("write-rate", env("WRITE_RATE"), &cfg.WriteRate); err != nil {
		return err
	}

	ints := []struct {
		flag, name string
		dst        *int
	}{
		{"count", "COUNT", &cfg.Count},
		{"concurrency", "CONCURRENCY", &cfg.Concurrency},
		{"max-polls", "MAX_POLLS", &cfg.MaxPolls},
		{"query-limit", "QUERY_LIMIT", &cfg.QueryLimit},
		{"purge-max-attempts", "PURGE_MAX_ATTEMPTS", &cfg.PurgeMaxAttempts},
		{"log-max-size", "LOG_MAX_SIZE", &cfg.LogMaxSizeMB},
		{"log-max-backups", "LOG_MAX_BACKUPS", &cfg.LogMaxBackups},
	}
	for _, f := range ints {
		if err := s.setIntFromString(f.flag, env(f.name), f.dst); err != nil {
			return err
		}
	}

	s.setBoolFromString("skip-purge", env("SKIP_PURGE"), &cfg.SkipPurge)
	s.setBoolFromString("no-stdout", env("NO_STDOUT"), &cfg.NoStdout)
	return nil
}
