package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"shutterpost/internal/config"
	"shutterpost/internal/logging"
)

// Bridge owns the per-category filesystem watchers and the event queue that
// feeds the pipeline consumer.
type Bridge struct {
	cfg    *config.Config
	logger *slog.Logger

	queue        chan FileEvent
	pollInterval time.Duration

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	watchers []*fsnotify.Watcher

	dropped int64
}

// NewBridge constructs an event bridge for the configured categories.
func NewBridge(cfg *config.Config, logger *slog.Logger) *Bridge {
	return &Bridge{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "watcher"),
		queue:        make(chan FileEvent, cfg.Watcher.QueueSize),
		pollInterval: time.Duration(cfg.Workflow.EventPollInterval) * time.Second,
	}
}

// Start begins watching every resolved category directory, performs an
// initial rescan, and schedules periodic rescans until the context ends.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("watcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.running = true
	b.mu.Unlock()

	categories := b.cfg.ResolveCategories()
	if len(categories) == 0 {
		b.logger.Warn("no categories to watch; only rescans will find files")
	}

	for _, category := range categories {
		if err := b.watchCategory(runCtx, category); err != nil {
			b.Stop()
			return err
		}
	}

	b.Rescan()

	b.wg.Add(1)
	go b.rescanLoop(runCtx)

	b.logger.Info("watcher started",
		logging.Int("categories", len(categories)),
		logging.Int("queue_capacity", cap(b.queue)),
	)
	return nil
}

// Stop closes all filesystem watchers and waits for their goroutines. Events
// already queued remain consumable.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	watchers := b.watchers
	b.watchers = nil
	b.running = false
	b.cancel = nil
	b.mu.Unlock()

	cancel()
	for _, w := range watchers {
		_ = w.Close()
	}
	b.wg.Wait()
}

// Next yields the next queued event. The boolean is false when the poll
// timeout elapsed or the context ended without an event, so the caller can
// check for shutdown and try again.
func (b *Bridge) Next(ctx context.Context) (FileEvent, bool) {
	timer := time.NewTimer(b.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return FileEvent{}, false
	case event := <-b.queue:
		return event, true
	case <-timer.C:
		return FileEvent{}, false
	}
}

// Depth reports how many events are waiting.
func (b *Bridge) Depth() int {
	return len(b.queue)
}

// Rescan walks every category directory and re-enqueues still-present files.
// This compensates for dropped notifications and recovers the backlog after a
// restart.
func (b *Bridge) Rescan() {
	found := 0
	for _, category := range b.cfg.ResolveCategories() {
		dir := b.cfg.CategoryPath(category)
		entries, err := os.ReadDir(dir)
		if err != nil {
			b.logger.Warn("rescan failed for category",
				logging.String(logging.FieldCategory, category),
				logging.Error(err),
			)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if b.enqueuePath(path, category) {
				found++
			}
		}
	}
	if found > 0 {
		b.logger.Info("rescan queued files", logging.Int("count", found))
	}
}

func (b *Bridge) rescanLoop(ctx context.Context) {
	defer b.wg.Done()
	interval := time.Duration(b.cfg.Watcher.RescanInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Rescan()
		}
	}
}

func (b *Bridge) watchCategory(ctx context.Context, category string) error {
	dir := b.cfg.CategoryPath(category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return err
	}

	b.mu.Lock()
	b.watchers = append(b.watchers, fsw)
	b.mu.Unlock()

	b.wg.Add(1)
	go b.watchLoop(ctx, fsw, category)
	return nil
}

// watchLoop runs on the watcher's own goroutine. It must never block on the
// queue: a stalled consumer would back up fsnotify's delivery for the whole
// category.
func (b *Bridge) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, category string) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			b.enqueuePath(event.Name, category)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			b.logger.Warn("watch error",
				logging.String(logging.FieldCategory, category),
				logging.Error(err),
			)
		}
	}
}

// enqueuePath filters and queues one candidate file. Returns true when the
// event was accepted onto the queue.
func (b *Bridge) enqueuePath(path, category string) bool {
	if !b.cfg.AllowsExtension(strings.ToLower(filepath.Ext(path))) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	event := FileEvent{
		Path:       path,
		Category:   category,
		Size:       info.Size(),
		DetectedAt: time.Now(),
	}

	select {
	case b.queue <- event:
		b.logger.Debug("file detected",
			logging.String(logging.FieldFile, path),
			logging.String(logging.FieldCategory, category),
			logging.Int64("size", event.Size),
		)
		return true
	default:
		// Queue full: drop and rely on the next rescan to requeue.
		b.mu.Lock()
		b.dropped++
		dropped := b.dropped
		b.mu.Unlock()
		b.logger.Warn("event queue full, dropping notification",
			logging.String(logging.FieldFile, path),
			logging.Int64("dropped_total", dropped),
		)
		return false
	}
}
