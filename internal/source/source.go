// Package source enumerates and reads Kotlin source files below a root.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"kmetrics/internal/errors"
)

// DefaultExtensions are the Kotlin source and script extensions.
var DefaultExtensions = []string{".kt", ".kts"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// File is one source file read from disk.
type File struct {
	// Path is slash-separated and relative to the scanned root.
	Path    string
	AbsPath string
	Text    string
}

// Skipped records a file that could not be ingested.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Options control Load.
type Options struct {
	Extensions  []string
	MaxFileSize int64
	Logger      *slog.Logger
}

// Set is the result of loading a tree.
type Set struct {
	Root    string
	Files   []File
	Skipped []Skipped
}

// Scan returns the slash-separated relative paths of all files below root
// whose extension is in exts, sorted lexically.
func Scan(root string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.New(errors.SourceUnreadable, "cannot access "+root, err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.SourceUnreadable, root+" is not a directory", nil)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subdirectories are skipped, not fatal.
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !hasExtension(path, exts) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.SourceUnreadable, "cannot scan "+root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Read loads one file. Files larger than maxSize (when positive) and files
// that are not valid UTF-8 are rejected with SOURCE_UNREADABLE.
func Read(root, rel string, maxSize int64) (File, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))

	f, err := os.Open(abs)
	if err != nil {
		return File{}, errors.New(errors.SourceUnreadable, "cannot open "+rel, err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, errors.New(errors.SourceUnreadable, "cannot read "+rel, err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return File{}, errors.New(errors.SourceUnreadable,
			fmt.Sprintf("%s exceeds %d bytes", rel, maxSize), nil)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return File{}, errors.New(errors.SourceUnreadable, rel+" is not valid UTF-8", nil)
	}

	return File{Path: rel, AbsPath: abs, Text: string(data)}, nil
}

// Load scans root and reads every matching file. Unreadable files are
// logged and recorded in Skipped; they never fail the load.
func Load(ctx context.Context, root string, opts Options) (*Set, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	paths, err := Scan(root, opts.Extensions)
	if err != nil {
		return nil, err
	}

	set := &Set{Root: root, Files: make([]File, 0, len(paths))}
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, err := Read(root, rel, opts.MaxFileSize)
		if err != nil {
			logger.Warn("Skipping unreadable source file", "path", rel, "error", err.Error())
			set.Skipped = append(set.Skipped, Skipped{Path: rel, Reason: err.Error()})
			continue
		}
		set.Files = append(set.Files, file)
	}

	logger.Debug("Sources loaded", "root", root, "files", len(set.Files), "skipped", len(set.Skipped))
	return set, nil
}
