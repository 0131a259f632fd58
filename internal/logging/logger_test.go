package logging

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"shutterpost/internal/services"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "out.log")
	logger, err := New(Options{Level: "debug", Format: "console", Outputs: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("upload recorded", String(FieldCategory, "art"), Int("count", 3))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "upload recorded") {
		t.Fatalf("missing message in %q", line)
	}
	if !strings.Contains(line, "category=art") || !strings.Contains(line, "count=3") {
		t.Fatalf("missing attrs in %q", line)
	}
	if !strings.Contains(line, "INFO") {
		t.Fatalf("missing level in %q", line)
	}
}

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{Format: "console", Outputs: []string{path}})
	if err != nil {
		t.Fatal(err)
	}

	NewComponentLogger(logger, "pipeline").Info("pass completed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "pipeline: pass completed") {
		t.Fatalf("component not promoted: %q", string(data))
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected format error")
	}
}

func TestJSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{Format: "json", Outputs: []string{path}})
	if err != nil {
		t.Fatal(err)
	}
	logger.Warn("boom", Error(errors.New("bad")))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"boom"`) || !strings.Contains(line, `"level":"warn"`) {
		t.Fatalf("unexpected json line: %q", line)
	}
}

func TestWithContextAddsPipelineFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{Format: "console", Outputs: []string{path}})
	if err != nil {
		t.Fatal(err)
	}

	ctx := services.WithCategory(context.Background(), "art")
	ctx = services.WithRequestID(ctx, "req-9")
	WithContext(ctx, logger).Info("stage started")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "category=art") || !strings.Contains(line, "correlation_id=req-9") {
		t.Fatalf("context fields missing: %q", line)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic and must report disabled at every level.
	logger.Error("ignored")
	if logger.Enabled(context.Background(), 0) {
		t.Fatal("nop logger should be disabled")
	}
}

func TestConsoleHandlerClonesShareWriteLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Options{Level: "debug", Format: "console", Outputs: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base, ok := logger.Handler().(*consoleHandler)
	if !ok {
		t.Fatalf("expected consoleHandler, got %T", logger.Handler())
	}
	clone, ok := base.WithAttrs([]slog.Attr{String(FieldComponent, "pipeline")}).(*consoleHandler)
	if !ok {
		t.Fatalf("expected consoleHandler clone, got %T", base.WithAttrs(nil))
	}
	if clone.mu != base.mu {
		t.Fatal("WithAttrs clone must share the writer mutex")
	}

	first := NewComponentLogger(logger, "pipeline")
	second := NewComponentLogger(logger, "watcher")

	var wg sync.WaitGroup
	for _, l := range []*slog.Logger{first, second} {
		wg.Add(1)
		go func(l *slog.Logger) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				l.Info("concurrent write", Int("seq", i))
			}
		}(l)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 100 {
		t.Fatalf("expected 100 log lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "concurrent write") || !strings.Contains(line, "seq=") {
			t.Fatalf("interleaved or truncated line %q", line)
		}
	}
}
