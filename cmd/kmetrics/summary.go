package main

import (
	"io"

	"github.com/spf13/cobra"

	"kmetrics/internal/engine"
	"kmetrics/internal/errors"
	"kmetrics/internal/report"
)

var (
	summaryFormat string
	summaryMode   string
)

var summaryCmd = &cobra.Command{
	Use:   "summary <archive|dir>",
	Short: "Print a project overview",
	Long: `Print file, package, class, function and property counts together with
LOC, SLOC, CLOC and the comment ratio.

Examples:
  kmetrics summary app.zip
  kmetrics summary ./src --format=json`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "human", "Output format (human, json, yaml)")
	summaryCmd.Flags().StringVar(&summaryMode, "mode", "", "Parser mode (auto, ast, text)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("mode") {
		cfg.Parser.Mode = summaryMode
	}

	format, err := report.ParseFormat(summaryFormat)
	if err != nil || format == report.FormatSQLite {
		return errors.New(errors.ConfigInvalid, "unsupported summary format "+summaryFormat, err)
	}

	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	eng, err := engine.NewEngine(logger, cfg)
	if err != nil {
		return err
	}

	rep, err := eng.Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return writeTo("", cmd.OutOrStdout(), func(w io.Writer) error {
		return report.WriteSummary(w, rep, format)
	})
}
