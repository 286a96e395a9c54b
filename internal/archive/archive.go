// Package archive extracts uploaded source archives into a scoped
// workspace directory that is always removed when the run ends.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"kmetrics/internal/errors"
)

// Format identifies a supported archive container.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarZst Format = "tar.zst"
)

// DetectFormat picks the archive format from the file name.
func DetectFormat(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return FormatTarZst, nil
	case strings.HasSuffix(name, ".tar"):
		return FormatTar, nil
	}
	return "", errors.New(errors.ArchiveUnsupported, "unsupported archive format: "+filepath.Base(path), nil)
}

// IsArchive reports whether path has a recognised archive extension.
func IsArchive(path string) bool {
	_, err := DetectFormat(path)
	return err == nil
}

// Options bounds extraction.
type Options struct {
	// TempDir is the parent of the workspace; empty means os.TempDir().
	TempDir       string
	MaxEntries    int
	MaxTotalBytes int64
	Logger        *slog.Logger
}

// Workspace is an extracted archive on disk.
type Workspace struct {
	Dir     string
	Entries int
	Bytes   int64

	logger   *slog.Logger
	released bool
}

// Acquire creates a fresh workspace directory and extracts the archive
// into it. On failure the directory is removed before returning.
func Acquire(ctx context.Context, archivePath string, opts Options) (*Workspace, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	parent := opts.TempDir
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, "kmetrics-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.New(errors.InternalError, "cannot create workspace", err)
	}

	ws := &Workspace{Dir: dir, logger: logger}
	x := &extractor{ctx: ctx, root: dir, opts: opts, ws: ws, logger: logger}

	switch format {
	case FormatZip:
		err = x.zip(archivePath)
	default:
		err = x.tarFile(archivePath, format)
	}
	if err != nil {
		_ = ws.Release()
		return nil, err
	}

	logger.Debug("Archive extracted",
		"archive", archivePath,
		"format", string(format),
		"dir", dir,
		"entries", ws.Entries,
		"bytes", ws.Bytes,
	)
	return ws, nil
}

// Release removes the workspace and everything below it. Safe to call twice.
func (w *Workspace) Release() error {
	if w == nil || w.released {
		return nil
	}
	w.released = true
	if err := os.RemoveAll(w.Dir); err != nil {
		w.logger.Warn("Failed to remove workspace", "dir", w.Dir, "error", err.Error())
		return err
	}
	return nil
}

// With acquires a workspace, runs fn on its directory and releases it on
// every path, including a panic in fn.
func With(ctx context.Context, archivePath string, opts Options, fn func(dir string) error) error {
	ws, err := Acquire(ctx, archivePath, opts)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Release() }()
	return fn(ws.Dir)
}

type extractor struct {
	ctx    context.Context
	root   string
	opts   Options
	ws     *Workspace
	logger *slog.Logger
}

func (x *extractor) zip(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return errors.New(errors.ArchiveInvalid, "cannot open zip archive", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := x.ctx.Err(); err != nil {
			return err
		}
		if err := x.countEntry(); err != nil {
			return err
		}

		target, err := x.target(f.Name)
		if err != nil {
			return err
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.New(errors.InternalError, "cannot create directory", err)
			}
			continue
		case !mode.IsRegular():
			x.logger.Debug("Skipping non-regular zip entry", "entry", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return errors.New(errors.ArchiveInvalid, "cannot read zip entry "+f.Name, err)
		}
		err = x.writeFile(target, rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) tarFile(path string, format Format) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.New(errors.ArchiveInvalid, "cannot open archive", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.New(errors.ArchiveInvalid, "invalid gzip stream", err)
		}
		defer gz.Close()
		r = gz
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return errors.New(errors.ArchiveInvalid, "invalid zstd stream", err)
		}
		defer zr.Close()
		r = zr
	}
	return x.tar(r)
}

func (x *extractor) tar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		if err := x.ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.New(errors.ArchiveInvalid, "corrupt tar stream", err)
		}
		if err := x.countEntry(); err != nil {
			return err
		}

		target, err := x.target(hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.New(errors.InternalError, "cannot create directory", err)
			}
		case tar.TypeReg:
			if err := x.writeFile(target, tr); err != nil {
				return err
			}
		default:
			x.logger.Debug("Skipping non-regular tar entry", "entry", hdr.Name, "type", string(hdr.Typeflag))
		}
	}
}

func (x *extractor) countEntry() error {
	x.ws.Entries++
	if x.opts.MaxEntries > 0 && x.ws.Entries > x.opts.MaxEntries {
		return errors.New(errors.ArchiveTooLarge,
			fmt.Sprintf("archive has more than %d entries", x.opts.MaxEntries), nil)
	}
	return nil
}

// target maps an entry name to a path below root, rejecting entries that
// would land outside it.
func (x *extractor) target(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ArchiveUnsafePath, "entry escapes extraction root: "+name, nil)
	}
	target := filepath.Join(x.root, clean)
	if target != x.root && !strings.HasPrefix(target, x.root+string(filepath.Separator)) {
		return "", errors.New(errors.ArchiveUnsafePath, "entry escapes extraction root: "+name, nil)
	}
	return target, nil
}

func (x *extractor) writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.New(errors.InternalError, "cannot create directory", err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.New(errors.InternalError, "cannot create file", err)
	}

	src := r
	var remaining int64 = -1
	if x.opts.MaxTotalBytes > 0 {
		remaining = x.opts.MaxTotalBytes - x.ws.Bytes
		src = io.LimitReader(r, remaining+1)
	}

	n, err := io.Copy(out, src)
	closeErr := out.Close()
	x.ws.Bytes += n
	if err != nil {
		return errors.New(errors.ArchiveInvalid, "cannot extract "+filepath.Base(target), err)
	}
	if closeErr != nil {
		return errors.New(errors.InternalError, "cannot write "+filepath.Base(target), closeErr)
	}
	if remaining >= 0 && n > remaining {
		return errors.New(errors.ArchiveTooLarge,
			fmt.Sprintf("archive expands beyond %d bytes", x.opts.MaxTotalBytes), nil)
	}
	return nil
}
