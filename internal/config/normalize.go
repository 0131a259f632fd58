package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizeBlog()
	c.normalizeCaptioning()
	c.normalizeConversion()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	if c.Paths.FailedDir, err = expandPath(c.Paths.FailedDir); err != nil {
		return fmt.Errorf("paths.failed_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	c.Watcher.Categories = trimNonEmpty(c.Watcher.Categories)
	c.Watcher.FileExtensions = normalizeExtensions(c.Watcher.FileExtensions)
	if len(c.Watcher.FileExtensions) == 0 {
		c.Watcher.FileExtensions = defaultFileExtensions()
	}
	if c.Watcher.QueueSize <= 0 {
		c.Watcher.QueueSize = defaultQueueSize
	}
	if c.Watcher.RescanInterval <= 0 {
		c.Watcher.RescanInterval = defaultRescanInterval
	}
}

func (c *Config) normalizeBlog() {
	if c.Blog.APIKey == "" {
		if value, ok := os.LookupEnv("BLOG_API_KEY"); ok {
			c.Blog.APIKey = value
		}
	}
	c.Blog.APIKey = strings.TrimSpace(c.Blog.APIKey)
	c.Blog.Name = strings.TrimSpace(c.Blog.Name)
	c.Blog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Blog.BaseURL), "/")
	if c.Blog.BaseURL == "" {
		c.Blog.BaseURL = defaultBlogBaseURL
	}
	c.Blog.PostState = strings.ToLower(strings.TrimSpace(c.Blog.PostState))
	if c.Blog.PostState == "" {
		c.Blog.PostState = defaultBlogPostState
	}
	c.Blog.CommonTags = trimNonEmpty(c.Blog.CommonTags)
}

func (c *Config) normalizeCaptioning() {
	if c.Captioning.APIKey == "" {
		if value, ok := os.LookupEnv("CAPTION_API_KEY"); ok {
			c.Captioning.APIKey = value
		}
	}
	c.Captioning.APIKey = strings.TrimSpace(c.Captioning.APIKey)
	c.Captioning.BaseURL = strings.TrimRight(strings.TrimSpace(c.Captioning.BaseURL), "/")
	if c.Captioning.BaseURL == "" {
		c.Captioning.BaseURL = defaultCaptioningBaseURL
	}
	c.Captioning.Model = strings.TrimSpace(c.Captioning.Model)
	if c.Captioning.Model == "" {
		c.Captioning.Model = defaultCaptioningModel
	}
	if strings.TrimSpace(c.Captioning.Prompt) == "" {
		c.Captioning.Prompt = defaultCaptioningPrompt
	}
	if c.Captioning.TimeoutSeconds <= 0 {
		c.Captioning.TimeoutSeconds = defaultCaptioningTimeout
	}
}

func (c *Config) normalizeConversion() {
	c.Conversion.Formats = normalizeExtensions(c.Conversion.Formats)
	if len(c.Conversion.Formats) == 0 {
		c.Conversion.Formats = defaultConvertFormats()
	}
	if c.Conversion.Quality <= 0 || c.Conversion.Quality > 100 {
		c.Conversion.Quality = defaultConversionQuality
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if !strings.HasPrefix(v, ".") {
			v = "." + v
		}
		out = append(out, v)
	}
	return out
}
