package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"kmetrics/internal/config"
	"kmetrics/internal/engine"
	"kmetrics/internal/errors"
	"kmetrics/internal/report"
)

var (
	analyzeFormat    string
	analyzeOutput    string
	analyzeMode      string
	analyzeWorkers   int
	analyzeFailEmpty bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <archive|dir>",
	Short: "Compute per-method metrics for a Kotlin source tree",
	Long: `Compute per-method, per-class and project metrics for every Kotlin file
in a directory or archive (.zip, .tar, .tar.gz/.tgz, .tar.zst).

Archives are extracted into a temporary workspace that is removed when the
run ends. Files that fail to parse become error rows; a corrupt archive
fails the whole run.

Examples:
  kmetrics analyze app.zip
  kmetrics analyze ./src --format=human
  kmetrics analyze app.tar.gz --format=json -o report.json
  kmetrics analyze app.zip --format=sqlite -o metrics.db
  kmetrics analyze ./src --mode=text --workers=4`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "", "Output format (csv, json, yaml, human, sqlite)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the report to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "", "Parser mode (auto, ast, text)")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "Parse workers for the first pass")
	analyzeCmd.Flags().BoolVar(&analyzeFailEmpty, "fail-empty", false, "Fail when the input has no Kotlin sources")
	rootCmd.AddCommand(analyzeCmd)
}

// applyAnalyzeFlags overrides config values with explicitly set flags.
func applyAnalyzeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = analyzeFormat
	}
	if flags.Changed("output") {
		cfg.Output.Path = analyzeOutput
	}
	if flags.Changed("mode") {
		cfg.Parser.Mode = analyzeMode
	}
	if flags.Changed("workers") {
		cfg.Analysis.Workers = analyzeWorkers
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAnalyzeFlags(cmd, cfg)

	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	eng, err := engine.NewEngine(logger, cfg)
	if err != nil {
		return err
	}
	eng.RequireSources = analyzeFailEmpty

	rep, err := eng.Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return errors.New(errors.ConfigInvalid, err.Error(), nil)
	}
	if format == report.FormatSQLite {
		if err := report.WriteSQLite(cmd.Context(), cfg.Output.Path, rep); err != nil {
			return err
		}
		logger.Info("Report written", "path", cfg.Output.Path, "rows", len(rep.Rows))
		return nil
	}

	if err := writeTo(cfg.Output.Path, cmd.OutOrStdout(), func(w io.Writer) error {
		return report.Write(w, rep, format)
	}); err != nil {
		return err
	}
	if cfg.Output.Path != "" {
		logger.Info("Report written", "path", cfg.Output.Path, "rows", len(rep.Rows))
	}
	return nil
}

// writeTo renders into path, or into stdout when path is empty.
func writeTo(path string, stdout io.Writer, render func(io.Writer) error) error {
	if path == "" {
		return render(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.ExportFailed, "cannot create "+path, err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return errors.New(errors.ExportFailed, "cannot write "+path, err)
	}
	if err := f.Close(); err != nil {
		return errors.New(errors.ExportFailed, "cannot write "+path, err)
	}
	return nil
}
