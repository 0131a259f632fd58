package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shutterpost/internal/config"
	"shutterpost/internal/convert"
	"shutterpost/internal/filer"
	"shutterpost/internal/history"
	"shutterpost/internal/logging"
	"shutterpost/internal/notifications"
	"shutterpost/internal/ratelimit"
	"shutterpost/internal/readiness"
	"shutterpost/internal/services/blogger"
	"shutterpost/internal/services/captioner"
	"shutterpost/internal/watcher"
)

// Publisher is the blog client surface the pipeline needs.
type Publisher interface {
	Publish(ctx context.Context, req blogger.UploadRequest) (blogger.UploadResult, error)
}

// Captioner is the vision caption surface the pipeline needs.
type Captioner interface {
	Enabled() bool
	Analyze(ctx context.Context, path string) captioner.Analysis
}

// Converter is the format conversion surface the pipeline needs.
type Converter interface {
	ConvertIfNeeded(path string) (string, error)
}

// Deps carries the pipeline's collaborators. Nil fields are filled with the
// production implementations built from the config.
type Deps struct {
	Validator *readiness.Validator
	Limiter   *ratelimit.Limiter
	Converter Converter
	Captioner Captioner
	Publisher Publisher
	Filer     *filer.Filer
	History   *history.Store
	Notifier  notifications.Service
	Listener  func(Outcome)
}

// Pipeline consumes events from the bridge and processes files one at a time.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	bridge    *watcher.Bridge
	validator *readiness.Validator
	limiter   *ratelimit.Limiter
	converter Converter
	captioner Captioner
	publisher Publisher
	files     *filer.Filer
	store     *history.Store
	notifier  notifications.Service
	listener  func(Outcome)

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	processed int
	failed    int
	lastErr   error
}

// New constructs a Pipeline. The bridge must be started separately.
func New(cfg *config.Config, bridge *watcher.Bridge, deps Deps, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		bridge:    bridge,
		validator: deps.Validator,
		limiter:   deps.Limiter,
		converter: deps.Converter,
		captioner: deps.Captioner,
		publisher: deps.Publisher,
		files:     deps.Filer,
		store:     deps.History,
		notifier:  deps.Notifier,
		listener:  deps.Listener,
	}
	if p.validator == nil {
		p.validator = readiness.New(cfg.Readiness, logger)
	}
	if p.limiter == nil {
		p.limiter = ratelimit.New(cfg.RateLimit)
	}
	if p.converter == nil {
		p.converter = convert.New(cfg.Conversion, logger)
	}
	if p.captioner == nil {
		p.captioner = captioner.NewClient(cfg.Captioning)
	}
	if p.publisher == nil {
		p.publisher = blogger.NewClient(cfg.Blog)
	}
	if p.files == nil {
		p.files = filer.New(cfg, logger)
	}
	if p.notifier == nil {
		p.notifier = notifications.NewService(cfg)
	}
	return p
}

// Limiter exposes the admission controller for status reporting.
func (p *Pipeline) Limiter() *ratelimit.Limiter {
	return p.limiter
}

// Start begins the consumer loop and the failed-tree sweep loop.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(2)
	go p.run(runCtx)
	go p.sweepLoop(runCtx)
	return nil
}

// Stop terminates the consumer loop and waits for the in-flight pass to
// settle.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Stats summarizes pipeline activity since start.
type Stats struct {
	Processed  int
	Failed     int
	QueueDepth int
}

// Snapshot reports current pipeline counters.
func (p *Pipeline) Snapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Processed:  p.processed,
		Failed:     p.failed,
		QueueDepth: p.bridge.Depth(),
	}
}

func (p *Pipeline) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		event, ok := p.bridge.Next(ctx)
		if !ok {
			continue
		}

		// A fresh dequeue after shutdown is abandoned; the file stays
		// in place for the next startup rescan.
		select {
		case <-ctx.Done():
			return
		default:
		}

		p.runPass(ctx, event)
	}
}

func (p *Pipeline) sweepLoop(ctx context.Context) {
	defer p.wg.Done()
	interval := time.Duration(p.cfg.Cleanup.SweepInterval) * time.Second
	if interval <= 0 || p.cfg.Cleanup.FailedRetentionDays <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.files.Sweep(time.Now()); err != nil {
				p.logger.Warn("failed tree sweep errored", logging.Error(err))
			}
		}
	}
}

func (p *Pipeline) recordOutcome(success bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if success {
		p.processed++
	} else {
		p.failed++
		p.lastErr = err
	}
}
