package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shutterpost/internal/config"
)

const userAgent = "Shutterpost/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyUploadCompleted(ctx context.Context, fileName, category, postID string) error
	NotifyUploadFailed(ctx context.Context, fileName, category, kind string, cause error) error
	NotifyDaemonStarted(ctx context.Context, categories int) error
	NotifyDaemonStopped(ctx context.Context) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		uploads:  cfg.Notifications.Uploads,
		errors:   cfg.Notifications.Errors,
		daemon:   cfg.Notifications.Daemon,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	uploads  bool
	errors   bool
	daemon   bool
	client   *http.Client
}

func (n *ntfyService) NotifyUploadCompleted(ctx context.Context, fileName, category, postID string) error {
	if !n.uploads {
		return nil
	}
	fileName = strings.TrimSpace(fileName)
	message := fmt.Sprintf("Published %s to %s", fileName, category)
	if postID = strings.TrimSpace(postID); postID != "" {
		message = fmt.Sprintf("%s (post %s)", message, postID)
	}
	data := payload{
		title:   "Shutterpost - Published",
		message: message,
		tags:    []string{"shutterpost", "upload", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadFailed(ctx context.Context, fileName, category, kind string, cause error) error {
	if !n.uploads {
		return nil
	}
	fileName = strings.TrimSpace(fileName)
	if kind = strings.TrimSpace(kind); kind == "" {
		kind = "unknown_error"
	}
	message := fmt.Sprintf("Upload failed: %s (%s) in %s", fileName, kind, category)
	if cause != nil {
		message = fmt.Sprintf("%s\n%s", message, strings.TrimSpace(cause.Error()))
	}
	data := payload{
		title:    "Shutterpost - Upload Failed",
		message:  message,
		tags:     []string{"shutterpost", "upload", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, categories int) error {
	if !n.daemon {
		return nil
	}
	data := payload{
		title:   "Shutterpost - Started",
		message: fmt.Sprintf("Watching %d categories", categories),
		tags:    []string{"shutterpost", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context) error {
	if !n.daemon {
		return nil
	}
	data := payload{
		title:   "Shutterpost - Stopped",
		message: "Daemon shut down",
		tags:    []string{"shutterpost", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Shutterpost - Error",
		message:  builder.String(),
		tags:     []string{"shutterpost", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Shutterpost - Test",
		message:  "Notification system test",
		tags:     []string{"shutterpost", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyUploadCompleted(context.Context, string, string, string) error     { return nil }
func (noopService) NotifyUploadFailed(context.Context, string, string, string, error) error { return nil }
func (noopService) NotifyDaemonStarted(context.Context, int) error                          { return nil }
func (noopService) NotifyDaemonStopped(context.Context) error                               { return nil }
func (noopService) NotifyError(context.Context, error, string) error                        { return nil }
func (noopService) TestNotification(context.Context) error                                  { return nil }
