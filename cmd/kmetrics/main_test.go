package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"kmetrics/internal/config"
	"kmetrics/internal/report"
)

const sampleSource = `package shop

class Cart(val total: Int) {
    fun getTotal(): Int {
        return total
    }

    fun checkout(paid: Boolean) {
        if (paid || total == 0) {
            println("done")
        }
    }
}
`

// resetFlags restores every flag to its default so commands can run more
// than once per process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sampleTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Cart.kt"), []byte(sampleSource), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestAnalyzeCommand_CSV(t *testing.T) {
	out, err := execute(t, "analyze", sampleTree(t), "--mode=text", "--format=csv", "-q")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	rows, err := report.ReadCSV(strings.NewReader(out))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v\n%s", err, out)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].Method != "checkout" || rows[1].CC != 3 {
		t.Errorf("checkout row = %+v", rows[1])
	}
	if rows[0].WMCNAMM != 3 || rows[0].WMC != 4 {
		t.Errorf("WMC/WMCNAMM = %d/%d, want 4/3", rows[0].WMC, rows[0].WMCNAMM)
	}
}

func TestAnalyzeCommand_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	out, err := execute(t, "analyze", sampleTree(t), "--mode=text", "--format=json", "-o", path, "-q")
	if err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"checkout"`) {
		t.Errorf("report missing checkout:\n%s", data)
	}
}

func TestAnalyzeCommand_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")

	if _, err := execute(t, "analyze", sampleTree(t), "--mode=text", "--format=sqlite", "-o", path, "-q"); err != nil {
		t.Fatalf("analyze error = %v", err)
	}

	rows, err := report.ReadSQLiteRows(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadSQLiteRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows, want 2", len(rows))
	}
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"sqlite without output", []string{"--format=sqlite"}},
		{"unknown format", []string{"--format=xml"}},
		{"unknown mode", []string{"--mode=fast"}},
		{"zero workers", []string{"--workers=0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"analyze", sampleTree(t), "-q"}, tt.args...)
			if _, err := execute(t, args...); err == nil {
				t.Error("analyze error = nil, want error")
			}
		})
	}
}

func TestAnalyzeCommand_FailEmpty(t *testing.T) {
	dir := t.TempDir()

	if _, err := execute(t, "analyze", dir, "--mode=text", "-q"); err != nil {
		t.Errorf("analyze on empty dir error = %v", err)
	}
	if _, err := execute(t, "analyze", dir, "--mode=text", "--fail-empty", "-q"); err == nil {
		t.Error("analyze --fail-empty error = nil, want error")
	}
}

func TestSummaryCommand(t *testing.T) {
	out, err := execute(t, "summary", sampleTree(t), "--mode=text", "-q")
	if err != nil {
		t.Fatalf("summary error = %v", err)
	}
	for _, want := range []string{"Summary Report", "Classes:", "shop"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "summary", sampleTree(t), "--format=sqlite", "-q"); err == nil {
		t.Error("summary --format=sqlite error = nil, want error")
	}
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "kmetrics.toml")

	out, err := execute(t, "init", "--path", path)
	if err != nil {
		t.Fatalf("init error = %v", err)
	}
	if !strings.Contains(out, "Wrote") {
		t.Errorf("init output = %q", out)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, config.DefaultConfig()) {
		t.Errorf("written config = %+v, want defaults", cfg)
	}

	out, err = execute(t, "init", "--path", path)
	if err != nil {
		t.Fatalf("second init error = %v", err)
	}
	if !strings.Contains(out, "already exists") {
		t.Errorf("second init output = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "kmetrics version ") || !strings.Contains(out, "Parsers: [") {
		t.Errorf("version output = %q", out)
	}

	out, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json error = %v", err)
	}
	var info struct {
		Version     string   `json:"version"`
		ParserModes []string `json:"parserModes"`
	}
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("json.Unmarshal() error = %v\n%s", err, out)
	}
	if info.Version == "" || len(info.ParserModes) == 0 {
		t.Errorf("version json = %+v", info)
	}
}

func TestNewLogger_File(t *testing.T) {
	resetFlags(rootCmd)
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "info"
	cfg.Logging.File = filepath.Join(t.TempDir(), "kmetrics.log")

	var stderr bytes.Buffer
	logger, closeLog, err := newLogger(cfg, &stderr)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("Analysis started", "root", "/src")
	closeLog()

	data, err := os.ReadFile(cfg.Logging.File)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"msg":"Analysis started"`) {
		t.Errorf("log file = %q", data)
	}
	if !strings.Contains(stderr.String(), "Analysis started") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
