package ratelimit

import (
	"testing"
	"time"

	"shutterpost/internal/config"
)

func newTestLimiter(overrides func(*config.RateLimit)) *Limiter {
	cfg := config.RateLimit{
		UploadDelay:     5,
		MaxPerHour:      100,
		MaxPerDay:       1000,
		BurstLimit:      5,
		BurstWindowSecs: 60,
	}
	if overrides != nil {
		overrides(&cfg)
	}
	return New(cfg)
}

func TestShouldAllowFreshLimiter(t *testing.T) {
	l := newTestLimiter(nil)
	if !l.ShouldAllow(time.Now()) {
		t.Fatal("fresh limiter should allow")
	}
}

func TestUploadDelayConstraint(t *testing.T) {
	l := newTestLimiter(nil)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

	l.RecordUpload(now)
	if l.ShouldAllow(now.Add(2 * time.Second)) {
		t.Fatal("should deny inside upload delay")
	}
	if !l.ShouldAllow(now.Add(6 * time.Second)) {
		t.Fatal("should allow after upload delay")
	}
}

func TestBurstWindowScenario(t *testing.T) {
	// Category "art", burst_limit=2, upload_delay=0: the third upload inside
	// the same 60s window is denied, then allowed once the window slides past
	// the first recorded upload.
	l := newTestLimiter(func(cfg *config.RateLimit) {
		cfg.UploadDelay = 0
		cfg.BurstLimit = 2
	})
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

	if !l.ShouldAllow(start) {
		t.Fatal("first upload should be allowed")
	}
	l.RecordUpload(start)
	second := start.Add(time.Second)
	if !l.ShouldAllow(second) {
		t.Fatal("second upload should be allowed")
	}
	l.RecordUpload(second)

	third := start.Add(2 * time.Second)
	if l.ShouldAllow(third) {
		t.Fatal("third upload inside the burst window should be denied")
	}
	if !l.ShouldAllow(start.Add(61 * time.Second)) {
		t.Fatal("upload should be allowed after the window slides past the first entry")
	}
}

func TestHourlyLimitAndLazyReset(t *testing.T) {
	l := newTestLimiter(func(cfg *config.RateLimit) {
		cfg.UploadDelay = 0
		cfg.MaxPerHour = 2
		cfg.BurstLimit = 100
	})
	now := time.Date(2026, 3, 10, 12, 30, 0, 0, time.Local)

	l.RecordUpload(now)
	l.RecordUpload(now.Add(61 * time.Second))
	if l.ShouldAllow(now.Add(2 * time.Minute)) {
		t.Fatal("hourly budget exhausted, should deny")
	}

	// First check after the hour boundary resets the counter exactly once.
	afterBoundary := time.Date(2026, 3, 10, 13, 0, 1, 0, time.Local)
	if !l.ShouldAllow(afterBoundary) {
		t.Fatal("hourly counter should reset after the boundary")
	}
	st := l.Snapshot(afterBoundary)
	if st.HourlyUploads != 0 {
		t.Fatalf("hourly count = %d after reset, want 0", st.HourlyUploads)
	}
	if st.HourlyRemaining < 0 || st.DailyRemaining < 0 {
		t.Fatal("remaining budgets must never be negative")
	}
}

func TestDailyLimitResetsAtMidnight(t *testing.T) {
	l := newTestLimiter(func(cfg *config.RateLimit) {
		cfg.UploadDelay = 0
		cfg.MaxPerDay = 1
		cfg.BurstLimit = 100
	})
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.Local)

	l.RecordUpload(now)
	if l.ShouldAllow(now.Add(time.Minute)) {
		t.Fatal("daily budget exhausted, should deny")
	}
	nextDay := time.Date(2026, 3, 11, 0, 0, 1, 0, time.Local)
	if !l.ShouldAllow(nextDay) {
		t.Fatal("daily counter should reset after midnight")
	}
}

func TestWaitTimeIsMaxNotSum(t *testing.T) {
	l := newTestLimiter(func(cfg *config.RateLimit) {
		cfg.UploadDelay = 10
		cfg.BurstLimit = 1
		cfg.BurstWindowSecs = 60
	})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	l.RecordUpload(now)

	// Two seconds later both the delay (8s remaining) and the burst window
	// (58s remaining) are violated; the wait is the burst window's 58s, not 66s.
	check := now.Add(2 * time.Second)
	wait := l.WaitTime(check)
	if wait != 58*time.Second {
		t.Fatalf("wait = %v, want 58s", wait)
	}

	// After sleeping exactly that long the limiter admits again.
	if !l.ShouldAllow(check.Add(wait)) {
		t.Fatal("should allow after waiting the reported duration")
	}
}

func TestWaitTimeZeroWhenClear(t *testing.T) {
	l := newTestLimiter(nil)
	if wait := l.WaitTime(time.Now()); wait != 0 {
		t.Fatalf("wait = %v on fresh limiter, want 0", wait)
	}
}

func TestWaitTimeHourBoundary(t *testing.T) {
	l := newTestLimiter(func(cfg *config.RateLimit) {
		cfg.UploadDelay = 0
		cfg.MaxPerHour = 1
		cfg.BurstLimit = 100
	})
	now := time.Date(2026, 3, 10, 12, 40, 0, 0, time.Local)
	l.RecordUpload(now)

	wait := l.WaitTime(now.Add(time.Second))
	want := 19*time.Minute + 59*time.Second
	if wait != want {
		t.Fatalf("wait = %v, want %v (time to next hour)", wait, want)
	}
}

func TestRecordOnFailedPublishStillCounts(t *testing.T) {
	// The caller records every attempt that reached the network, so a failed
	// publish still consumes budget.
	l := newTestLimiter(func(cfg *config.RateLimit) {
		cfg.UploadDelay = 0
		cfg.MaxPerDay = 2
		cfg.BurstLimit = 100
	})
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	l.RecordUpload(now)
	l.RecordUpload(now.Add(time.Minute))
	if l.ShouldAllow(now.Add(2 * time.Minute)) {
		t.Fatal("failed attempts must still exhaust the daily budget")
	}
}

func TestReset(t *testing.T) {
	l := newTestLimiter(func(cfg *config.RateLimit) { cfg.UploadDelay = 60 })
	now := time.Now()
	l.RecordUpload(now)
	if l.ShouldAllow(now.Add(time.Second)) {
		t.Fatal("expected denial before reset")
	}
	l.Reset()
	if !l.ShouldAllow(now.Add(2 * time.Second)) {
		t.Fatal("expected allowance after reset")
	}
}
