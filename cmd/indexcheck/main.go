package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/indexcheck/internal/cliconfig"
	"github.com/bft-labs/indexcheck/internal/domain"
	"github.com/bft-labs/indexcheck/pkg/indexcheck"
	"github.com/bft-labs/indexcheck/pkg/log"
	"github.com/bft-labs/indexcheck/pkg/report"
)

const longHelp = `Measure how long an indexed collection store takes to make new records queryable.

indexcheck writes a batch of records into a fresh collection, polls the
collection's query endpoint until every record is returned, reports the
elapsed time and then deletes the records again.

Configure via file ($HOME/.indexcheck/config.toml), INDEXCHECK_* env
variables, or flags. Flags win over env, env wins over the file.`

var exampleUsage = strings.TrimSpace(`
  indexcheck --base-url http://localhost:8080 --org test-organization --app test-app
  indexcheck --config ./indexcheck.yaml --count 5000 --max-wait 30m
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "indexcheck",
		Short:         "Measure index latency of a collection store",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &cfg, cfgPath)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to config file, .toml or .yaml (default: $HOME/.indexcheck/config.toml)")
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "store base URL, e.g. http://localhost:8080")
	flags.StringVar(&cfg.Org, "org", cfg.Org, "organization name")
	flags.StringVar(&cfg.App, "app", cfg.App, "application name")
	flags.StringVar(&cfg.Collection, "collection", cfg.Collection, "collection to write into (default: <hostname>-index-test-<timestamp>-<id>)")
	flags.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "application client id for client_credentials auth")
	flags.StringVar(&cfg.ClientSecret, "client-secret", cfg.ClientSecret, "application client secret")

	flags.IntVar(&cfg.Count, "count", cfg.Count, "number of records to write")
	flags.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "creates in flight at once")
	flags.Float64Var(&cfg.WriteRate, "write-rate", cfg.WriteRate, "max creates per second (0 = unlimited)")
	flags.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "delay between convergence polls")
	flags.DurationVar(&cfg.MaxWait, "max-wait", cfg.MaxWait, "give up waiting for convergence after this long (0 = forever)")
	flags.IntVar(&cfg.MaxPolls, "max-polls", cfg.MaxPolls, "give up waiting for convergence after this many polls (0 = unlimited)")
	flags.IntVar(&cfg.QueryLimit, "query-limit", cfg.QueryLimit, "query limit parameter (0 = count)")

	flags.StringVar(&cfg.MarkerField, "marker-field", cfg.MarkerField, "field identifying records of a run")
	flags.StringVar(&cfg.MarkerValue, "marker-value", cfg.MarkerValue, "value of the marker field")
	flags.StringVar(&cfg.TemplateFile, "template", cfg.TemplateFile, "JSON file with the record payload template")

	flags.IntVar(&cfg.PurgeMaxAttempts, "purge-max-attempts", cfg.PurgeMaxAttempts, "maximum delete requests during purge")
	flags.DurationVar(&cfg.PurgeDelay, "purge-delay", cfg.PurgeDelay, "delay between delete requests")
	flags.BoolVar(&cfg.SkipPurge, "skip-purge", cfg.SkipPurge, "leave the records in place")
	flags.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")

	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "rotating log file (empty disables)")
	flags.IntVar(&cfg.LogMaxSizeMB, "log-max-size", cfg.LogMaxSizeMB, "log file size in MB before rotation")
	flags.IntVar(&cfg.LogMaxBackups, "log-max-backups", cfg.LogMaxBackups, "rotated log files to keep")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.BoolVar(&cfg.NoStdout, "no-stdout", cfg.NoStdout, "log only to the log file")
	flags.StringVar(&cfg.ReportDir, "report-dir", cfg.ReportDir, "directory for the JSON run report (empty disables)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "indexcheck: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	// Determine config path
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgPath != "" && !cliconfig.FileExists(cfgPath) {
		return fmt.Errorf("config file %s not found", cfgPath)
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	// File < env < flags
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	zl, closer, err := cliconfig.NewLogger(*cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	zl.Info().Interface("config", cfg.Masked()).Msg("configuration")

	runCfg, err := cfg.RunConfig()
	if err != nil {
		return err
	}

	opts := []indexcheck.Option{
		indexcheck.WithLogger(log.NewZerologAdapterWithLogger(zl)),
	}
	if cfg.ReportDir != "" {
		opts = append(opts, indexcheck.WithReportRepository(report.NewFileRepository(cfg.ReportDir)))
	}

	runner, err := indexcheck.New(runCfg, opts...)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}

	// SIGINT/SIGTERM abandon the run without purging
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := runner.Run(ctx)
	logSummary(zl, rep, err)
	return err
}

func logSummary(zl zerolog.Logger, rep report.Report, err error) {
	ev := zl.Info()
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInterrupted):
		ev = zl.Warn()
	default:
		ev = zl.Error().Err(err)
	}
	ev.Str("collection", rep.Collection).
		Str("state", rep.State.String()).
		Int("created", rep.Created).
		Int("write_failures", rep.WriteFailures).
		Int("missing", rep.Convergence.Missing).
		Int("polls", rep.Convergence.Polls).
		Dur("write_elapsed", time.Duration(rep.WriteElapsed)).
		Dur("index_elapsed", rep.Convergence.Elapsed).
		Msg("index test finished")
	if rep.Purge != nil && rep.Purge.Remaining > 0 {
		zl.Warn().Int("remaining", rep.Purge.Remaining).Msg("records left behind")
	}
}
