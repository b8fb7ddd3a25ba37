package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/agusespa/upgradescope/internal/cache"
	"github.com/agusespa/upgradescope/internal/history"
	"github.com/agusespa/upgradescope/internal/logging"
	"github.com/agusespa/upgradescope/internal/pipeline"
	"github.com/agusespa/upgradescope/internal/report"
	"github.com/agusespa/upgradescope/pkg/config"
	"github.com/agusespa/upgradescope/pkg/spinner"
)

var (
	analyzeConfig           string
	analyzeBefore           string
	analyzeAfter            string
	analyzeConsumers        []string
	analyzeExclude          []string
	analyzeExcludeDirs      []string
	analyzeNoCache          bool
	analyzeHistory          bool
	analyzeJSON             string
	analyzeReport           string
	analyzeFailOnUnresolved bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the impact of an upgrade on consumer trees",
	Long: `Compare the before and after trees of a dependency and check every consumer
usage of a changed or deleted class.

Results are cached by input paths, exclusions and flags, not by file contents.
Pass --no-cache after editing files in place.

Examples:
  upgradescope analyze --before vendor-1.x --after vendor-2.x --consumer src
  upgradescope analyze --config upgradescope.toml --history
  upgradescope analyze --before old --after new --consumer app --exclude 'Vendor\Tests\*'
  upgradescope analyze ... --json result.json --fail-on-unresolved`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeConfig, "config", "", "Path to configuration file (default upgradescope.toml when present)")
	f.StringVar(&analyzeBefore, "before", "", "Dependency tree before the upgrade")
	f.StringVar(&analyzeAfter, "after", "", "Dependency tree after the upgrade")
	f.StringArrayVar(&analyzeConsumers, "consumer", nil, "Consumer tree to check (repeatable)")
	f.StringArrayVar(&analyzeExclude, "exclude", nil, "Namespace glob to exclude (repeatable)")
	f.StringArrayVar(&analyzeExcludeDirs, "exclude-dir", nil, "Directory name glob to skip (repeatable)")
	f.BoolVar(&analyzeNoCache, "no-cache", false, "Ignore and do not update the run cache")
	f.BoolVar(&analyzeHistory, "history", false, "Attach vendor patches to changed classes")
	f.StringVar(&analyzeJSON, "json", "", "Write the structured result to this file")
	f.StringVar(&analyzeReport, "report", "", "Write the markdown report to this file")
	f.BoolVar(&analyzeFailOnUnresolved, "fail-on-unresolved", false, "Exit with status 2 when any usage needs attention")

	rootCmd.AddCommand(analyzeCmd)
}

// analyzeSettings merges the configuration file with explicitly set flags.
func analyzeSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(analyzeConfig)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("before") {
		cfg.Input.Before = analyzeBefore
	}
	if flags.Changed("after") {
		cfg.Input.After = analyzeAfter
	}
	if flags.Changed("consumer") {
		cfg.Input.Consumers = analyzeConsumers
	}
	if flags.Changed("exclude") {
		cfg.Input.ExcludeNamespaces = analyzeExclude
	}
	if flags.Changed("exclude-dir") {
		cfg.Input.ExcludeDirs = analyzeExcludeDirs
	}
	if analyzeNoCache {
		cfg.Cache.Enabled = false
	}
	if analyzeHistory {
		cfg.History.Enabled = true
	}
	if flags.Changed("json") {
		cfg.Output.JSON = analyzeJSON
	}
	if flags.Changed("report") {
		cfg.Output.Report = analyzeReport
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.RequireInputs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.LevelFromString(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, level, cfg.Log.Format)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := analyzeSettings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Before:            cfg.Input.Before,
		After:             cfg.Input.After,
		Consumers:         cfg.Input.Consumers,
		ExcludeNamespaces: cfg.Input.ExcludeNamespaces,
		ExcludeDirs:       cfg.Input.ExcludeDirs,
		Logger:            logger,
	}
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			logger.Warn("run cache disabled", "error", err)
		} else {
			defer store.Close()
			opts.Cache = store
		}
	}
	if cfg.History.Enabled {
		opts.History = history.NewRetriever(cfg.History.GitBinary, cfg.History.ContextLines)
	}

	stopSpinner := func() {}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		sp := spinner.New(os.Stderr, "Starting analysis")
		opts.Progress = func(phase string) { sp.Update("Running " + phase + " phase") }
		sp.Start()
		stopSpinner = sp.Stop
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := pipeline.Run(ctx, opts)
	stopSpinner()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if cfg.Output.Report != "" {
		if err := report.WriteMarkdown(cfg.Output.Report, result); err != nil {
			return err
		}
	}
	if cfg.Output.JSON != "" {
		if err := report.WriteJSON(cfg.Output.JSON, result); err != nil {
			return err
		}
	}
	report.PrintSummary(cmd.OutOrStdout(), result, cfg.Output.Report)

	if analyzeFailOnUnresolved && result.Totals.Unresolved > 0 {
		return exitCodeError{code: 2}
	}
	return nil
}
