package ratelimit

import (
	"sync"
	"time"

	"shutterpost/internal/config"
)

// Limiter tracks upload timestamps and answers whether the next upload may
// proceed. All methods are safe for concurrent use; the mutex only matters if
// the pipeline ever grows beyond one consumer, but it keeps the
// read-then-mutate admission sequence correct either way.
type Limiter struct {
	mu sync.Mutex

	uploadDelay time.Duration
	burstWindow time.Duration
	burstLimit  int
	maxPerHour  int
	maxPerDay   int

	lastUpload  time.Time
	window      []time.Time
	hourlyCount int
	dailyCount  int
	hourMarker  time.Time
	dayMarker   time.Time
}

// New constructs a Limiter from the rate-limit configuration section.
func New(cfg config.RateLimit) *Limiter {
	return &Limiter{
		uploadDelay: time.Duration(cfg.UploadDelay) * time.Second,
		burstWindow: time.Duration(cfg.BurstWindowSecs) * time.Second,
		burstLimit:  cfg.BurstLimit,
		maxPerHour:  cfg.MaxPerHour,
		maxPerDay:   cfg.MaxPerDay,
	}
}

// ShouldAllow reports whether an upload may proceed at the given instant.
// It checks, in order: daily budget, hourly budget, inter-upload delay, and
// the trailing burst window. The check has no side effects beyond lazy
// counter resets and window pruning.
func (l *Limiter) ShouldAllow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maintain(now)

	if l.dailyCount >= l.maxPerDay {
		return false
	}
	if l.hourlyCount >= l.maxPerHour {
		return false
	}
	if !l.lastUpload.IsZero() && now.Sub(l.lastUpload) < l.uploadDelay {
		return false
	}
	if len(l.window) >= l.burstLimit {
		return false
	}
	return true
}

// RecordUpload registers a publish attempt. Callers must invoke it exactly
// once per attempt that actually reached the network call, regardless of the
// publish outcome; skipping it on failure would let retries bypass the
// budgets entirely.
func (l *Limiter) RecordUpload(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maintain(now)

	l.lastUpload = now
	l.hourlyCount++
	l.dailyCount++
	l.window = append(l.window, now)
	if len(l.window) > l.burstLimit {
		l.window = l.window[len(l.window)-l.burstLimit:]
	}
}

// WaitTime returns how long the caller must wait before ShouldAllow can
// return true, assuming no further uploads are recorded. It is the maximum of
// the remaining durations for each violated constraint, not their sum: the
// worst constraint dominates, and looser ones clear during the same wait.
// Returns zero when nothing is violated.
func (l *Limiter) WaitTime(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maintain(now)

	var wait time.Duration

	if !l.lastUpload.IsZero() {
		if remaining := l.uploadDelay - now.Sub(l.lastUpload); remaining > wait {
			wait = remaining
		}
	}
	if len(l.window) >= l.burstLimit && len(l.window) > 0 {
		if remaining := l.burstWindow - now.Sub(l.window[0]); remaining > wait {
			wait = remaining
		}
	}
	if l.hourlyCount >= l.maxPerHour {
		if remaining := nextHour(now).Sub(now); remaining > wait {
			wait = remaining
		}
	}
	if l.dailyCount >= l.maxPerDay {
		if remaining := nextDay(now).Sub(now); remaining > wait {
			wait = remaining
		}
	}
	return wait
}

// Status is a point-in-time snapshot of the limiter for status surfaces.
type Status struct {
	HourlyUploads   int
	HourlyRemaining int
	DailyUploads    int
	DailyRemaining  int
	DelayRemaining  time.Duration
	BurstUsed       int
	BurstRemaining  int
	CanUploadNow    bool
}

// Snapshot reports the current budgets at the given instant.
func (l *Limiter) Snapshot(now time.Time) Status {
	l.mu.Lock()
	l.maintain(now)
	st := Status{
		HourlyUploads:   l.hourlyCount,
		HourlyRemaining: max(0, l.maxPerHour-l.hourlyCount),
		DailyUploads:    l.dailyCount,
		DailyRemaining:  max(0, l.maxPerDay-l.dailyCount),
		BurstUsed:       len(l.window),
		BurstRemaining:  max(0, l.burstLimit-len(l.window)),
	}
	if !l.lastUpload.IsZero() {
		if remaining := l.uploadDelay - now.Sub(l.lastUpload); remaining > 0 {
			st.DelayRemaining = remaining
		}
	}
	l.mu.Unlock()

	st.CanUploadNow = l.ShouldAllow(now)
	return st
}

// Reset clears all counters and the burst window.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastUpload = time.Time{}
	l.window = nil
	l.hourlyCount = 0
	l.dailyCount = 0
	l.hourMarker = time.Time{}
	l.dayMarker = time.Time{}
}

// maintain performs the lazy window upkeep that precedes every check: hour
// and day counters reset once when the local calendar boundary is crossed,
// and burst entries older than the window are pruned.
func (l *Limiter) maintain(now time.Time) {
	hour := startOfHour(now)
	if !hour.Equal(l.hourMarker) {
		l.hourlyCount = 0
		l.hourMarker = hour
	}

	day := startOfDay(now)
	if !day.Equal(l.dayMarker) {
		l.dailyCount = 0
		l.dayMarker = day
	}

	cutoff := now.Add(-l.burstWindow)
	idx := 0
	for idx < len(l.window) && !l.window[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.window = append(l.window[:0], l.window[idx:]...)
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func startOfHour(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, t.Hour(), 0, 0, 0, t.Location())
}

func nextHour(t time.Time) time.Time {
	return startOfHour(t).Add(time.Hour)
}

func nextDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1)
}
