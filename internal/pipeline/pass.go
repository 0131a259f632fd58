package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"shutterpost/internal/history"
	"shutterpost/internal/logging"
	"shutterpost/internal/services"
	"shutterpost/internal/services/blogger"
	"shutterpost/internal/watcher"
)

// Outcome is the lifecycle event emitted after each terminal pass.
type Outcome struct {
	FilePath     string
	Category     string
	Success      bool
	PostID       string
	Caption      string
	ErrorKind    services.Kind
	ErrorMessage string
	Converted    bool
	Elapsed      time.Duration
}

// runPass drives one event to a terminal outcome. A validator rejection or a
// shutdown during the readiness or admission waits ends the pass without a
// terminal file action and the file stays for a future rescan; once the pass
// is admitted it runs to completion even across a shutdown.
func (p *Pipeline) runPass(ctx context.Context, event watcher.FileEvent) {
	start := time.Now()
	requestID := uuid.NewString()
	passCtx := services.WithRequestID(ctx, requestID)
	passCtx = services.WithCategory(passCtx, event.Category)
	passCtx = services.WithFilePath(passCtx, event.Path)
	logger := logging.WithContext(passCtx, p.logger)

	var converted string
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("pipeline pass panicked: %v", r)
			logger.Error("unexpected failure in pipeline pass",
				logging.Error(err),
				logging.String(logging.FieldEventType, "pass_panic"),
			)
			p.finishFailure(passCtx, logger, event, converted, services.KindUnknown, err, start)
		}
	}()

	logger.Info("processing file",
		logging.String(logging.FieldEventType, "pass_start"),
		logging.Int64("size", event.Size),
	)

	if !p.validator.Validate(passCtx, &event) {
		logger.Debug("file not ready, leaving for next rescan")
		return
	}

	uploadPath := event.Path
	if path, err := p.converter.ConvertIfNeeded(event.Path); err != nil {
		p.finishFailure(passCtx, logger, event, "", services.Classify(err), err, start)
		return
	} else if path != "" {
		converted = path
		uploadPath = path
	}

	for now := time.Now(); !p.limiter.ShouldAllow(now); now = time.Now() {
		wait := p.limiter.WaitTime(now)
		logger.Info("admission denied, waiting",
			logging.String(logging.FieldEventType, "rate_limited"),
			logging.Duration("wait", wait),
		)
		if !sleepCtx(passCtx, wait) {
			p.files.DiscardArtifact(converted)
			return
		}
	}

	// Past admission the pass is committed: a shutdown must let the publish
	// and its disposition finish rather than abort them mid-step. Stop waits
	// on the consumer goroutine, so detaching here keeps the caption and
	// publish requests alive until the pass reaches a terminal outcome.
	commitCtx := context.WithoutCancel(passCtx)

	caption := ""
	if p.captioner.Enabled() {
		analysis := p.captioner.Analyze(commitCtx, uploadPath)
		if analysis.Err != "" {
			logger.Warn("captioning failed, publishing without caption",
				logging.String("reason", analysis.Err),
			)
		} else {
			caption = analysis.Description
		}
	}

	tags := make([]string, 0, 1+len(p.cfg.Blog.CommonTags))
	tags = append(tags, event.Category)
	tags = append(tags, p.cfg.Blog.CommonTags...)

	result, pubErr := p.publisher.Publish(commitCtx, blogger.UploadRequest{
		FilePath:  uploadPath,
		Category:  event.Category,
		Tags:      tags,
		Caption:   caption,
		PostState: p.cfg.Blog.PostState,
	})
	if result.Attempted {
		p.limiter.RecordUpload(time.Now())
	}
	if pubErr != nil || !result.Success {
		kind := result.ErrorKind
		if kind == "" {
			kind = services.Classify(pubErr)
		}
		if pubErr == nil {
			pubErr = fmt.Errorf("publish failed: %s", result.ErrorMessage)
		}
		p.finishFailure(commitCtx, logger, event, converted, kind, pubErr, start)
		return
	}

	p.finishSuccess(commitCtx, logger, event, converted, uploadPath, caption, result, start)
}

func (p *Pipeline) finishSuccess(ctx context.Context, logger *slog.Logger, event watcher.FileEvent, converted, uploadPath, caption string, result blogger.UploadResult, start time.Time) {
	if err := p.files.Delete(uploadPath); err != nil {
		logger.Warn("cleanup of uploaded file failed, leaving in place",
			logging.Error(err),
		)
	}
	if converted != "" && !p.cfg.Conversion.KeepOriginal {
		if err := p.files.Delete(event.Path); err != nil {
			logger.Warn("cleanup of original failed, leaving in place",
				logging.Error(err),
			)
		}
	}

	elapsed := time.Since(start)
	logger.Info("upload completed",
		logging.String(logging.FieldEventType, "upload_completed"),
		logging.String("post_id", result.PostID),
		logging.Bool("converted", converted != ""),
		logging.Duration("elapsed", elapsed),
	)

	p.recordOutcome(true, nil)
	p.emit(ctx, Outcome{
		FilePath:  event.Path,
		Category:  event.Category,
		Success:   true,
		PostID:    result.PostID,
		Caption:   caption,
		Converted: converted != "",
		Elapsed:   elapsed,
	}, event.Size)
}

func (p *Pipeline) finishFailure(ctx context.Context, logger *slog.Logger, event watcher.FileEvent, converted string, kind services.Kind, cause error, start time.Time) {
	dest, moveErr := p.files.MoveToFailed(event.Path, event.Category)
	if moveErr != nil {
		logger.Error("failed to quarantine original, leaving in place",
			logging.Error(moveErr),
		)
	}
	p.files.DiscardArtifact(converted)

	elapsed := time.Since(start)
	logger.Error("upload failed",
		logging.Error(cause),
		logging.String(logging.FieldEventType, "upload_failed"),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.Bool("converted", converted != ""),
		logging.String("quarantined_to", dest),
		logging.Duration("elapsed", elapsed),
	)

	p.recordOutcome(false, cause)
	p.emit(ctx, Outcome{
		FilePath:     event.Path,
		Category:     event.Category,
		ErrorKind:    kind,
		ErrorMessage: cause.Error(),
		Converted:    converted != "",
		Elapsed:      elapsed,
	}, event.Size)
}

// emit records the outcome in the ledger, sends notifications, and invokes
// the listener hook. Runs detached from the pass context so a shutdown does
// not lose the record.
func (p *Pipeline) emit(ctx context.Context, outcome Outcome, size int64) {
	detached := context.WithoutCancel(ctx)

	if p.store != nil {
		rec := &history.Record{
			FileName: filepath.Base(outcome.FilePath),
			Category: outcome.Category,
			PostID:   outcome.PostID,
			Caption:  outcome.Caption,
			FileSize: size,
			Duration: outcome.Elapsed,
		}
		if outcome.Success {
			rec.Outcome = history.OutcomePublished
		} else {
			rec.Outcome = history.OutcomeFailed
			rec.ErrorKind = string(outcome.ErrorKind)
			rec.ErrorMessage = outcome.ErrorMessage
		}
		if err := p.store.Append(detached, rec); err != nil {
			p.logger.Warn("history record failed", logging.Error(err))
		}
	}

	name := filepath.Base(outcome.FilePath)
	var notifyErr error
	if outcome.Success {
		notifyErr = p.notifier.NotifyUploadCompleted(detached, name, outcome.Category, outcome.PostID)
	} else {
		notifyErr = p.notifier.NotifyUploadFailed(detached, name, outcome.Category, string(outcome.ErrorKind), fmt.Errorf("%s", outcome.ErrorMessage))
	}
	if notifyErr != nil {
		p.logger.Warn("notification delivery failed", logging.Error(notifyErr))
	}

	if p.listener != nil {
		p.listener(outcome)
	}
}

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
