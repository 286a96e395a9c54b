package source

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"kmetrics/internal/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b/Second.kt":      "class Second",
		"a/First.kt":       "class First",
		"build.gradle.kts": "plugins {}",
		"a/Notes.txt":      "notes",
		"a/deep/Upper.KT":  "class Upper",
		"src/Main.java":    "class Main {}",
	})

	got, err := Scan(root, nil)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	want := []string{"a/First.kt", "a/deep/Upper.KT", "b/Second.kt", "build.gradle.kts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}
}

func TestScan_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"A.kt":  "class A",
		"B.kts": "println()",
	})

	got, err := Scan(root, []string{".kt"})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"A.kt"}) {
		t.Errorf("Scan() = %v, want [A.kt]", got)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), nil)
	if errors.CodeOf(err) != errors.SourceUnreadable {
		t.Errorf("Scan() error = %v, want SOURCE_UNREADABLE", err)
	}
}

func TestRead(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"ok.kt":    "class Ok",
		"bom.kt":   "\xEF\xBB\xBFclass Bom",
		"bad.kt":   "class \xff\xfe",
		"large.kt": "class Large { val x = 1 }",
	})

	tests := []struct {
		name     string
		rel      string
		maxSize  int64
		wantText string
		wantErr  bool
	}{
		{"plain", "ok.kt", 0, "class Ok", false},
		{"bom stripped", "bom.kt", 0, "class Bom", false},
		{"invalid utf8", "bad.kt", 0, "", true},
		{"too large", "large.kt", 8, "", true},
		{"exactly at limit", "ok.kt", 8, "class Ok", false},
		{"missing", "nope.kt", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Read(root, tt.rel, tt.maxSize)
			if tt.wantErr {
				if errors.CodeOf(err) != errors.SourceUnreadable {
					t.Errorf("Read() error = %v, want SOURCE_UNREADABLE", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if f.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", f.Text, tt.wantText)
			}
			if f.Path != tt.rel {
				t.Errorf("Path = %q, want %q", f.Path, tt.rel)
			}
		})
	}
}

func TestLoad_SkipsUnreadable(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/Good.kt": "class Good",
		"b/Bad.kt":  "class \xff",
		"c/Also.kt": "class Also",
	})

	set, err := Load(context.Background(), root, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(set.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(set.Files))
	}
	if set.Files[0].Path != "a/Good.kt" || set.Files[1].Path != "c/Also.kt" {
		t.Errorf("Files order = [%s %s], want [a/Good.kt c/Also.kt]", set.Files[0].Path, set.Files[1].Path)
	}
	if len(set.Skipped) != 1 || set.Skipped[0].Path != "b/Bad.kt" {
		t.Errorf("Skipped = %+v, want b/Bad.kt", set.Skipped)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"A.kt": "class A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Load(ctx, root, Options{}); err == nil {
		t.Error("Load() with cancelled context should fail")
	}
}
