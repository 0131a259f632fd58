package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shutterpost/internal/config"
	"shutterpost/internal/history"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, base)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path, base string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
watch_dir = %q
failed_dir = %q
log_dir = %q

[watcher]
categories = ["art", "travel"]

[blog]
name = "testblog"
api_key = "test-key"
`,
		filepath.Join(base, "watch"),
		filepath.Join(base, "failed"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestCLIStatusEmptyLedger(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running")
	requireContains(t, out, "no")
	requireContains(t, out, "Upload budget")
	requireContains(t, out, "0 of")
}

func TestCLIStatusReflectsLedger(t *testing.T) {
	env := setupCLITestEnv(t)

	store, err := history.Open(env.cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	ctx := context.Background()
	records := []history.Record{
		{FileName: "sunset.jpg", Category: "art", Outcome: history.OutcomePublished, PostID: "9001"},
		{FileName: "harbor.jpg", Category: "travel", Outcome: history.OutcomePublished, PostID: "9002"},
		{FileName: "broken.jpg", Category: "art", Outcome: history.OutcomeFailed, ErrorKind: "network", ErrorMessage: "connection refused"},
	}
	for i := range records {
		if err := store.Append(ctx, &records[i]); err != nil {
			t.Fatalf("append record: %v", err)
		}
	}
	store.Close()

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Published")
	requireContains(t, out, "2")
	requireContains(t, out, "Art")
	requireContains(t, out, "Travel")
	// Fresh records land inside every budget window.
	requireContains(t, out, "2 of")
}

func TestCLIStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	requireContains(t, out, `"daemon_running": false`)
	requireContains(t, out, `"hour_limit"`)
}

func TestCLIHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	store, err := history.Open(env.cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	rec := history.Record{
		FileName:  "sunset.jpg",
		Category:  "art",
		Outcome:   history.OutcomePublished,
		PostID:    "9001",
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Append(context.Background(), &rec); err != nil {
		t.Fatalf("append record: %v", err)
	}
	store.Close()

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "sunset.jpg")
	requireContains(t, out, "post 9001")

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	requireContains(t, out, "sunset.jpg")
}

func TestCLIHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No uploads recorded yet")
}

func TestCLILogs(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := filepath.Join(env.cfg.Paths.LogDir, "shutterpost.log")
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("ensure log dir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--lines", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "second")
	requireContains(t, out, "third")
	if strings.Contains(out, "first") {
		t.Fatalf("expected only trailing lines, got:\n%s", out)
	}
}

func TestCLITestNotifyUnconfigured(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "not configured")
}
