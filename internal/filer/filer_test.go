package filer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shutterpost/internal/logging"
	"shutterpost/internal/testsupport"
)

func TestDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCategories("art"))
	f := New(cfg, logging.NewNop())

	path := testsupport.WriteWatchedFile(t, cfg, "art", "done.jpg", []byte("x"))
	if err := f.Delete(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected file removed")
	}

	// Deleting an already-missing file is not an error.
	if err := f.Delete(path); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestMoveToFailedDedup(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCategories("art"))
	f := New(cfg, logging.NewNop())

	want := []string{"broken.jpg", "broken_1.jpg", "broken_2.jpg"}
	for i, name := range want {
		src := testsupport.WriteWatchedFile(t, cfg, "art", "broken.jpg", []byte{byte(i)})
		dest, err := f.MoveToFailed(src, "art")
		if err != nil {
			t.Fatal(err)
		}
		if got := filepath.Base(dest); got != name {
			t.Fatalf("move %d: expected %q, got %q", i, name, got)
		}
		if _, err := os.Stat(src); !os.IsNotExist(err) {
			t.Fatalf("move %d: expected source removed", i)
		}
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCategories("art", "travel"))
	f := New(cfg, logging.NewNop())

	for _, name := range []string{"a.jpg", "b.jpg"} {
		src := testsupport.WriteWatchedFile(t, cfg, "art", name, []byte("1234"))
		if _, err := f.MoveToFailed(src, "art"); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := f.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalFiles != 2 {
		t.Fatalf("expected 2 quarantined files, got %d", stats.TotalFiles)
	}
	if stats.TotalBytes != 8 {
		t.Fatalf("expected 8 bytes, got %d", stats.TotalBytes)
	}
	if cs := stats.Categories["art"]; cs.Files != 2 {
		t.Fatalf("expected art category stats, got %+v", stats.Categories)
	}
	if _, ok := stats.Categories["travel"]; ok {
		t.Fatal("empty category should not appear in stats")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCategories("art"))
	cfg.Cleanup.FailedRetentionDays = 7
	f := New(cfg, logging.NewNop())

	oldSrc := testsupport.WriteWatchedFile(t, cfg, "art", "old.jpg", []byte("old"))
	oldDest, err := f.MoveToFailed(oldSrc, "art")
	if err != nil {
		t.Fatal(err)
	}
	stale := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(oldDest, stale, stale); err != nil {
		t.Fatal(err)
	}

	freshSrc := testsupport.WriteWatchedFile(t, cfg, "art", "fresh.jpg", []byte("new"))
	freshDest, err := f.MoveToFailed(freshSrc, "art")
	if err != nil {
		t.Fatal(err)
	}

	removed, err := f.Sweep(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(oldDest); !os.IsNotExist(err) {
		t.Fatal("expected expired file removed")
	}
	if _, err := os.Stat(freshDest); err != nil {
		t.Fatalf("fresh file should survive sweep: %v", err)
	}
}

func TestSweepDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCategories("art"))
	cfg.Cleanup.FailedRetentionDays = 0
	f := New(cfg, logging.NewNop())

	src := testsupport.WriteWatchedFile(t, cfg, "art", "keep.jpg", []byte("k"))
	dest, err := f.MoveToFailed(src, "art")
	if err != nil {
		t.Fatal(err)
	}
	stale := time.Now().AddDate(0, 0, -365)
	if err := os.Chtimes(dest, stale, stale); err != nil {
		t.Fatal(err)
	}

	removed, err := f.Sweep(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Fatalf("expected no removals with retention disabled, got %d", removed)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("file should survive: %v", err)
	}
}
