package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"shutterpost/internal/config"
	"shutterpost/internal/history"
	"shutterpost/internal/logging"
	"shutterpost/internal/notifications"
	"shutterpost/internal/pipeline"
	"shutterpost/internal/preflight"
	"shutterpost/internal/ratelimit"
	"shutterpost/internal/watcher"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	bridge   *watcher.Bridge
	pipeline *pipeline.Pipeline
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	Categories    []string
	Pipeline      pipeline.Stats
	RateLimit     ratelimit.Status
	HistoryDBPath string
	LockFilePath  string
}

// LockPath returns the single-instance lock file location for the given
// configuration.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "shutterpostd.lock")
}

// LogFilePath returns the daemon log file location for the given
// configuration.
func LogFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "shutterpost.log")
}

// New constructs a daemon with initialized dependencies. The deps allow
// tests to substitute collaborators; production callers pass the zero value.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, deps pipeline.Deps) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, history store, and logger")
	}
	if deps.History == nil {
		deps.History = store
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
		deps.Notifier = notifier
	}

	bridge := watcher.NewBridge(cfg, logger)
	pl := pipeline.New(cfg, bridge, deps, logger)

	lockPath := LockPath(cfg)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		bridge:   bridge,
		pipeline: pl,
		notifier: notifier,
		logPath:  LogFilePath(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, runs preflight checks, and launches the
// watcher bridge and the pipeline.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shutterpost daemon instance is already running")
	}

	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			d.logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.bridge.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start watcher bridge: %w", err)
	}
	if err := d.pipeline.Start(runCtx); err != nil {
		d.bridge.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start pipeline: %w", err)
	}

	d.running.Store(true)
	categories := d.cfg.ResolveCategories()
	d.logger.Info("shutterpost daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("categories", len(categories)),
	)
	if err := d.notifier.NotifyDaemonStarted(runCtx, len(categories)); err != nil {
		d.logger.Warn("startup notification failed", logging.Error(err))
	}
	return nil
}

// Stop stops background processing and releases the daemon lock. Watchers
// stop producing first so the pipeline drains without new work arriving.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.bridge.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pipeline.Stop()

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Duration(d.cfg.Workflow.StopTimeout)*time.Second)
	defer cancel()
	if err := d.notifier.NotifyDaemonStopped(stopCtx); err != nil {
		d.logger.Warn("shutdown notification failed", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("shutterpost daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:       d.running.Load(),
		Categories:    d.cfg.ResolveCategories(),
		Pipeline:      d.pipeline.Snapshot(),
		RateLimit:     d.pipeline.Limiter().Snapshot(time.Now()),
		HistoryDBPath: d.store.Path(),
		LockFilePath:  d.lockPath,
	}
}
