package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"kmetrics/internal/errors"
)

type entry struct {
	name string
	body string
}

var sampleEntries = []entry{
	{"src/com/example/Foo.kt", "package com.example\n\nclass Foo\n"},
	{"src/com/example/Bar.kts", "println(\"bar\")\n"},
	{"README.md", "# sample\n"},
}

func writeZip(t *testing.T, path string, entries []entry) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatalf("zip write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func tarBytes(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", e.name, err)
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatalf("tar write %s: %v", e.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	return buf.Bytes()
}

func writeTar(t *testing.T, path string, format Format, entries []entry) {
	t.Helper()
	raw := tarBytes(t, entries)

	var buf bytes.Buffer
	switch format {
	case FormatTar:
		buf.Write(raw)
	case FormatTarGz:
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(raw); err != nil {
			t.Fatalf("gzip write: %v", err)
		}
		if err := gz.Close(); err != nil {
			t.Fatalf("gzip close: %v", err)
		}
	case FormatTarZst:
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		if _, err := zw.Write(raw); err != nil {
			t.Fatalf("zstd write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("zstd close: %v", err)
		}
	default:
		t.Fatalf("unexpected format %s", format)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func assertNoWorkspaces(t *testing.T, parent string) {
	t.Helper()
	left, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("workspace not cleaned up, found %d entries in %s", len(left), parent)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"project.zip", FormatZip, false},
		{"PROJECT.ZIP", FormatZip, false},
		{"project.tar", FormatTar, false},
		{"project.tar.gz", FormatTarGz, false},
		{"project.tgz", FormatTarGz, false},
		{"project.tar.zst", FormatTarZst, false},
		{"project.7z", "", true},
		{"project.kt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.wantErr {
				if errors.CodeOf(err) != errors.ArchiveUnsupported {
					t.Errorf("DetectFormat(%q) error = %v, want ARCHIVE_UNSUPPORTED", tt.path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFormat(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestAcquire_Formats(t *testing.T) {
	formats := []struct {
		name   string
		format Format
	}{
		{"sample.zip", FormatZip},
		{"sample.tar", FormatTar},
		{"sample.tar.gz", FormatTarGz},
		{"sample.tar.zst", FormatTarZst},
	}

	for _, tt := range formats {
		t.Run(string(tt.format), func(t *testing.T) {
			src := filepath.Join(t.TempDir(), tt.name)
			if tt.format == FormatZip {
				writeZip(t, src, sampleEntries)
			} else {
				writeTar(t, src, tt.format, sampleEntries)
			}

			parent := t.TempDir()
			ws, err := Acquire(context.Background(), src, Options{TempDir: parent})
			if err != nil {
				t.Fatalf("Acquire() error = %v", err)
			}

			if ws.Entries != len(sampleEntries) {
				t.Errorf("Entries = %d, want %d", ws.Entries, len(sampleEntries))
			}
			for _, e := range sampleEntries {
				data, err := os.ReadFile(filepath.Join(ws.Dir, filepath.FromSlash(e.name)))
				if err != nil {
					t.Errorf("extracted %s missing: %v", e.name, err)
					continue
				}
				if string(data) != e.body {
					t.Errorf("extracted %s = %q, want %q", e.name, data, e.body)
				}
			}

			if err := ws.Release(); err != nil {
				t.Fatalf("Release() error = %v", err)
			}
			if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
				t.Errorf("workspace %s still exists after Release", ws.Dir)
			}
			if err := ws.Release(); err != nil {
				t.Errorf("second Release() error = %v", err)
			}
		})
	}
}

func TestAcquire_FreshDirectoryPerRun(t *testing.T) {
	src := filepath.Join(t.TempDir(), "sample.zip")
	writeZip(t, src, sampleEntries)
	parent := t.TempDir()

	a, err := Acquire(context.Background(), src, Options{TempDir: parent})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer a.Release()
	b, err := Acquire(context.Background(), src, Options{TempDir: parent})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer b.Release()

	if a.Dir == b.Dir {
		t.Errorf("two runs share workspace %s", a.Dir)
	}
}

func TestAcquire_UnsafePath(t *testing.T) {
	evil := []entry{
		{"ok/Foo.kt", "class Foo\n"},
		{"../../escape.kt", "class Escape\n"},
	}

	t.Run("zip", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "evil.zip")
		writeZip(t, src, evil)
		parent := t.TempDir()

		_, err := Acquire(context.Background(), src, Options{TempDir: parent})
		if errors.CodeOf(err) != errors.ArchiveUnsafePath {
			t.Fatalf("Acquire() error = %v, want ARCHIVE_UNSAFE_PATH", err)
		}
		assertNoWorkspaces(t, parent)
	})

	t.Run("tar", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "evil.tar")
		writeTar(t, src, FormatTar, evil)
		parent := t.TempDir()

		_, err := Acquire(context.Background(), src, Options{TempDir: parent})
		if errors.CodeOf(err) != errors.ArchiveUnsafePath {
			t.Fatalf("Acquire() error = %v, want ARCHIVE_UNSAFE_PATH", err)
		}
		assertNoWorkspaces(t, parent)
	})
}

func TestAcquire_Limits(t *testing.T) {
	src := filepath.Join(t.TempDir(), "sample.tar.gz")
	writeTar(t, src, FormatTarGz, sampleEntries)

	tests := []struct {
		name string
		opts Options
	}{
		{"too many entries", Options{MaxEntries: 2}},
		{"too many bytes", Options{MaxTotalBytes: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := t.TempDir()
			tt.opts.TempDir = parent

			_, err := Acquire(context.Background(), src, tt.opts)
			if errors.CodeOf(err) != errors.ArchiveTooLarge {
				t.Fatalf("Acquire() error = %v, want ARCHIVE_TOO_LARGE", err)
			}
			assertNoWorkspaces(t, parent)
		})
	}
}

func TestAcquire_Corrupt(t *testing.T) {
	src := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(src, []byte("this is not a zip file"), 0644); err != nil {
		t.Fatal(err)
	}
	parent := t.TempDir()

	_, err := Acquire(context.Background(), src, Options{TempDir: parent})
	if errors.CodeOf(err) != errors.ArchiveInvalid {
		t.Fatalf("Acquire() error = %v, want ARCHIVE_INVALID", err)
	}
	assertNoWorkspaces(t, parent)
}

func TestWith_ReleasesOnError(t *testing.T) {
	src := filepath.Join(t.TempDir(), "sample.zip")
	writeZip(t, src, sampleEntries)
	parent := t.TempDir()

	var seen string
	err := With(context.Background(), src, Options{TempDir: parent}, func(dir string) error {
		seen = dir
		if _, err := os.Stat(filepath.Join(dir, "README.md")); err != nil {
			t.Errorf("README.md not extracted: %v", err)
		}
		return errors.New(errors.InternalError, "boom", nil)
	})

	if errors.CodeOf(err) != errors.InternalError {
		t.Errorf("With() error = %v, want the callback error", err)
	}
	if seen == "" {
		t.Fatal("callback was not invoked")
	}
	assertNoWorkspaces(t, parent)
}
