package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/notedraft/internal/config"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.New("boom"), 1},
		{&ExitError{Code: 2, Err: errors.New("no cases")}, 2},
		{fmt.Errorf("wrapped: %w", &ExitError{Code: 2, Err: errors.New("x")}), 2},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRunConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = config.BackendHeavy
	cfg.ModelID = "qwen2.5:7b"

	got := runConfig(cfg, true)
	if got["backend"] != "heavy" || got["model_id"] != "qwen2.5:7b" {
		t.Errorf("run config: %v", got)
	}
	if got["retries"] != "2" || got["max_new_tokens"] != "800" || got["save_last_prompt"] != "true" {
		t.Errorf("run config: %v", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"generate", "demo", "validate", "serve", "mcp", "history", "init", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestDemoWritesMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("NOTEDRAFT_BACKEND", "stub")
	t.Setenv("NOTEDRAFT_HISTORY_DB", "")

	casesDir := filepath.Join(dir, "cases")
	if err := os.MkdirAll(casesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(casesDir, "case_01.json"), []byte(`{"patient": {"age_years": 30}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rootCmd.SetArgs([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"demo",
		"--cases", filepath.Join(casesDir, "*.json"),
		"--metrics-out", "out/demo.prom",
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("demo: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", "demo.prom"))
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if want := `notedraft_runs_total{backend="stub",outcome="succeeded"} 1`; !strings.Contains(string(data), want) {
		t.Errorf("textfile missing %q", want)
	}
}
