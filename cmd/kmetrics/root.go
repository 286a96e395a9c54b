package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"kmetrics/internal/config"
	"kmetrics/internal/slogutil"
	"kmetrics/internal/version"
)

var (
	configPath string
	verbosity  int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "kmetrics",
	Short: "kmetrics - static metrics for Kotlin sources",
	Long: `kmetrics computes size, complexity, cohesion and inheritance metrics
(CC, nesting, LOC, WMC, WMC-NAMM, AMW, WOC, LCOM5, NOC, NOI, NOM, NOMNAMM,
NOCS per package) for a Kotlin source tree or a source archive.`,
	Version:       version.Get().Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("kmetrics version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: ./kmetrics.{toml,json,yaml})")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logs")
}

// loadConfig reads the config named by --config, or the working-directory
// default, and validates it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the run logger on stderr. CLI verbosity flags win over
// logging.level; logging.file adds a JSON copy of every record.
func newLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, func(), error) {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}

	logger := slogutil.New(stderr, cfg.Logging.Format, level)
	if cfg.Logging.File == "" {
		return logger, func() {}, nil
	}

	fileHandler, closer, err := slogutil.NewFileHandler(cfg.Logging.File, level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	tee := slogutil.Tee(logger.Handler(), fileHandler)
	return slog.New(tee), func() { _ = closer.Close() }, nil
}
