package config

import (
	"errors"
	"fmt"
	"strings"
)

var validPostStates = map[string]struct{}{
	"published": {},
	"draft":     {},
	"queue":     {},
	"private":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBlog(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if err := c.validateReadiness(); err != nil {
		return err
	}
	if err := c.validateWatcher(); err != nil {
		return err
	}
	if err := c.validateCaptioning(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBlog() error {
	if c.Blog.Name == "" {
		return errors.New("blog.name must be set to the target blog identifier")
	}
	if c.Blog.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/shutterpost/config.toml"
		}
		return fmt.Errorf("blog.api_key is required. Set BLOG_API_KEY env var or edit %s (create with 'shutterpost config init')", defaultPath)
	}
	if _, ok := validPostStates[c.Blog.PostState]; !ok {
		return fmt.Errorf("blog.post_state must be one of published, draft, queue, private (got %q)", c.Blog.PostState)
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	if c.RateLimit.UploadDelay < 0 {
		return errors.New("ratelimit.upload_delay must not be negative")
	}
	return ensurePositiveMap(map[string]int{
		"ratelimit.max_per_hour":         c.RateLimit.MaxPerHour,
		"ratelimit.max_per_day":          c.RateLimit.MaxPerDay,
		"ratelimit.burst_limit":          c.RateLimit.BurstLimit,
		"ratelimit.burst_window_seconds": c.RateLimit.BurstWindowSecs,
	})
}

func (c *Config) validateReadiness() error {
	return ensurePositiveMap(map[string]int{
		"readiness.settle_delay_ms":  c.Readiness.SettleDelayMS,
		"readiness.recheck_delay_ms": c.Readiness.RecheckDelayMS,
	})
}

func (c *Config) validateWatcher() error {
	if !c.Watcher.AutoDiscover && len(c.Watcher.Categories) == 0 {
		return errors.New("watcher.categories must be set when watcher.auto_discover is false")
	}
	for _, category := range c.Watcher.Categories {
		if strings.ContainsAny(category, "/\\") {
			return fmt.Errorf("watcher.categories entry %q must be a plain directory name", category)
		}
	}
	return ensurePositiveMap(map[string]int{
		"watcher.queue_size":      c.Watcher.QueueSize,
		"watcher.rescan_interval": c.Watcher.RescanInterval,
	})
}

func (c *Config) validateCaptioning() error {
	if !c.Captioning.Enabled {
		return nil
	}
	if c.Captioning.APIKey == "" {
		return errors.New("captioning.api_key must be set when captioning.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.event_poll_interval":  c.Workflow.EventPollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.stop_timeout":         c.Workflow.StopTimeout,
	}); err != nil {
		return err
	}
	if c.Cleanup.FailedRetentionDays < 0 {
		return errors.New("cleanup.failed_retention_days must not be negative (0 disables the sweep)")
	}
	if c.Cleanup.SweepInterval <= 0 {
		return errors.New("cleanup.sweep_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
