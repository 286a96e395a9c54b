// Package engine runs one metrics analysis: it acquires the input tree,
// loads sources, builds the project index and assembles the report.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"kmetrics/internal/archive"
	"kmetrics/internal/config"
	"kmetrics/internal/errors"
	"kmetrics/internal/project"
	"kmetrics/internal/report"
	"kmetrics/internal/slogutil"
	"kmetrics/internal/source"
	"kmetrics/internal/syntax"
)

// Engine holds the resolved settings shared by every run.
type Engine struct {
	logger *slog.Logger
	config *config.Config
	mode   syntax.Mode

	// RequireSources turns an input with no source files into a
	// NO_SOURCES error instead of an empty report.
	RequireSources bool
}

// NewEngine validates cfg and resolves the parser mode.
func NewEngine(logger *slog.Logger, cfg *config.Config) (*Engine, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid configuration", err)
	}

	mode, err := syntax.ParseMode(cfg.Parser.Mode)
	if err != nil {
		return nil, err
	}
	mode, err = syntax.Resolve(mode)
	if err != nil {
		return nil, err
	}

	return &Engine{logger: logger, config: cfg, mode: mode}, nil
}

// Mode returns the concrete parser mode used by this engine.
func (e *Engine) Mode() syntax.Mode {
	return e.mode
}

// Analyze dispatches on the input: archives are extracted into a scoped
// workspace, directories are analysed in place.
func (e *Engine) Analyze(ctx context.Context, input string) (*report.Report, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, errors.New(errors.SourceUnreadable, "cannot open input "+input, err)
	}
	if info.IsDir() {
		return e.AnalyzeDir(ctx, input)
	}
	return e.AnalyzeArchive(ctx, input)
}

// AnalyzeArchive extracts path into a fresh workspace, analyses it and
// removes the workspace on every path. Extraction failures are returned
// as run errors with no partial report.
func (e *Engine) AnalyzeArchive(ctx context.Context, path string) (*report.Report, error) {
	runID := uuid.NewString()
	logger := e.logger.With("runId", runID)

	opts := archive.Options{
		TempDir:       e.config.Archive.TempDir,
		MaxEntries:    e.config.Archive.MaxEntries,
		MaxTotalBytes: e.config.Archive.MaxTotalBytes,
		Logger:        logger,
	}

	var rep *report.Report
	err := archive.With(ctx, path, opts, func(dir string) error {
		var runErr error
		rep, runErr = e.run(ctx, runID, dir, logger)
		return runErr
	})
	if err != nil {
		logger.Error("Analysis failed", "archive", path, "error", err.Error())
		return nil, err
	}

	rep.Root = path
	return rep, nil
}

// AnalyzeDir analyses an already extracted tree.
func (e *Engine) AnalyzeDir(ctx context.Context, dir string) (*report.Report, error) {
	runID := uuid.NewString()
	logger := e.logger.With("runId", runID)

	rep, err := e.run(ctx, runID, dir, logger)
	if err != nil {
		logger.Error("Analysis failed", "dir", dir, "error", err.Error())
		return nil, err
	}
	return rep, nil
}

func (e *Engine) run(ctx context.Context, runID, dir string, logger *slog.Logger) (*report.Report, error) {
	start := time.Now()
	logger.Info("Analysis started", "root", dir, "mode", string(e.mode))

	set, err := source.Load(ctx, dir, source.Options{
		Extensions:  e.config.Source.Extensions,
		MaxFileSize: e.config.Source.MaxFileSizeBytes,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	if e.RequireSources && len(set.Files) == 0 {
		return nil, errors.New(errors.NoSources, "no source files found in "+dir, nil)
	}

	idx, err := project.Build(ctx, set, project.Options{
		Mode:    e.mode,
		Workers: e.config.Analysis.Workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("indexing project: %w", err)
	}

	rep := report.New(runID, idx)
	rep.Skipped = set.Skipped

	logger.Info("Analysis completed",
		"files", len(set.Files),
		"skipped", len(set.Skipped),
		"rows", len(rep.Rows),
		"parseErrors", rep.Summary.ParseErrors,
		"duration", time.Since(start).Milliseconds(),
	)
	return rep, nil
}
