// Package readiness guards the pipeline against files still being written.
// The check is a cheap bounded-retry size-stability probe, not a checksum:
// two re-reads with configurable delays, then give up and let the next
// rescan retry the file.
package readiness

import (
	"context"
	"log/slog"
	"os"
	"time"

	"shutterpost/internal/config"
	"shutterpost/internal/logging"
	"shutterpost/internal/watcher"
)

// Validator performs the size-stability check on newly queued files.
type Validator struct {
	settleDelay  time.Duration
	recheckDelay time.Duration
	logger       *slog.Logger
}

// New constructs a Validator from the readiness configuration section.
func New(cfg config.Readiness, logger *slog.Logger) *Validator {
	return &Validator{
		settleDelay:  time.Duration(cfg.SettleDelayMS) * time.Millisecond,
		recheckDelay: time.Duration(cfg.RecheckDelayMS) * time.Millisecond,
		logger:       logging.NewComponentLogger(logger, "readiness"),
	}
}

// Validate reports whether the event's file has finished being written.
// On success the event's recorded size is refreshed to the stable value.
// A false return means the pass should end with no terminal file action;
// the file stays in place for a future rescan.
func (v *Validator) Validate(ctx context.Context, event *watcher.FileEvent) bool {
	if _, err := os.Stat(event.Path); err != nil {
		v.logger.Warn("file disappeared before validation",
			logging.String(logging.FieldFile, event.Path),
		)
		return false
	}

	if !sleepCtx(ctx, v.settleDelay) {
		return false
	}

	current, ok := v.statSize(event.Path)
	if !ok {
		return false
	}
	if current == event.Size {
		event.Size = current
		return true
	}

	v.logger.Debug("file still being written, rechecking",
		logging.String(logging.FieldFile, event.Path),
		logging.Int64("old_size", event.Size),
		logging.Int64("new_size", current),
	)
	if !sleepCtx(ctx, v.recheckDelay) {
		return false
	}

	final, ok := v.statSize(event.Path)
	if !ok {
		return false
	}
	if final != current {
		v.logger.Warn("file still changing, skipping until next rescan",
			logging.String(logging.FieldFile, event.Path),
		)
		return false
	}

	event.Size = final
	return true
}

func (v *Validator) statSize(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil {
		v.logger.Warn("stat failed during validation",
			logging.String(logging.FieldFile, path),
			logging.Error(err),
		)
		return 0, false
	}
	return info.Size(), true
}

// sleepCtx waits for the duration unless the context ends first. Returns
// false on early cancellation so the caller can skip the file instead of
// proceeding on a stale size.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
