package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shutterpost/internal/logs"
)

func TestTailLinesReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shutterpost.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lines, offset, err := logs.TailLines(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "three" || lines[1] != "four" {
		t.Fatalf("unexpected lines %v", lines)
	}
	if offset == 0 {
		t.Fatal("expected non-zero offset")
	}
}

func TestTailLinesMissingFile(t *testing.T) {
	lines, offset, err := logs.TailLines(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %v at %d", lines, offset)
	}
}

func TestTailLinesFewerThanLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shutterpost.log")
	if err := os.WriteFile(path, []byte("only\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lines, _, err := logs.TailLines(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "only" {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shutterpost.log")
	if err := os.WriteFile(path, []byte("existing\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, offset, err := logs.TailLines(path, 0)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, func(line string) { got <- line })
	}()

	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("appended\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	select {
	case line := <-got:
		if line != "appended" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("follow did not emit the appended line")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("follow did not stop after cancel")
	}
}
