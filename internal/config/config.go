package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir  string `toml:"watch_dir"`
	FailedDir string `toml:"failed_dir"`
	LogDir    string `toml:"log_dir"`
}

// Watcher contains configuration for directory watching and event queuing.
type Watcher struct {
	Categories     []string `toml:"categories"`
	AutoDiscover   bool     `toml:"auto_discover"`
	FileExtensions []string `toml:"file_extensions"`
	QueueSize      int      `toml:"queue_size"`
	RescanInterval int      `toml:"rescan_interval"`
}

// Readiness contains the size-stability check delays.
type Readiness struct {
	SettleDelayMS  int `toml:"settle_delay_ms"`
	RecheckDelayMS int `toml:"recheck_delay_ms"`
}

// RateLimit contains the upload admission-control budgets.
type RateLimit struct {
	UploadDelay     int `toml:"upload_delay"`
	MaxPerHour      int `toml:"max_per_hour"`
	MaxPerDay       int `toml:"max_per_day"`
	BurstLimit      int `toml:"burst_limit"`
	BurstWindowSecs int `toml:"burst_window_seconds"`
}

// Conversion contains image format conversion settings.
type Conversion struct {
	Enabled      bool     `toml:"enabled"`
	Quality      int      `toml:"quality"`
	KeepOriginal bool     `toml:"keep_original"`
	Formats      []string `toml:"formats"`
}

// Captioning contains configuration for AI caption generation.
type Captioning struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Prompt         string `toml:"prompt"`
	AppendText     string `toml:"append_text"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Blog contains configuration for the remote blog API.
type Blog struct {
	BaseURL    string   `toml:"base_url"`
	Name       string   `toml:"name"`
	APIKey     string   `toml:"api_key"`
	PostState  string   `toml:"post_state"`
	CommonTags []string `toml:"common_tags"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Uploads        bool   `toml:"uploads"`
	Errors         bool   `toml:"errors"`
	Daemon         bool   `toml:"daemon"`
}

// Cleanup contains retention policy for the failed-uploads tree.
type Cleanup struct {
	FailedRetentionDays int `toml:"failed_retention_days"`
	SweepInterval       int `toml:"sweep_interval"`
}

// Workflow contains daemon timing and polling intervals.
type Workflow struct {
	EventPollInterval  int `toml:"event_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	StopTimeout        int `toml:"stop_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Shutterpost.
//
// Configuration sections by subsystem:
//   - Paths: watch root, failed-upload root, log directory
//   - Watcher: categories, extension allow-list, queue sizing, rescans
//   - Readiness: write-in-progress settle delays
//   - RateLimit: upload admission budgets (delay/burst/hour/day)
//   - Conversion: image format conversion to JPEG
//   - Captioning: AI caption generation
//   - Blog: remote blog API credentials and post defaults
//   - Notifications: ntfy push notification settings
//   - Cleanup: failed-tree retention sweep
//   - Workflow: consumer polling intervals and shutdown timing
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watcher       Watcher       `toml:"watcher"`
	Readiness     Readiness     `toml:"readiness"`
	RateLimit     RateLimit     `toml:"ratelimit"`
	Conversion    Conversion    `toml:"conversion"`
	Captioning    Captioning    `toml:"captioning"`
	Blog          Blog          `toml:"blog"`
	Notifications Notifications `toml:"notifications"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shutterpost/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shutterpost.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation,
// including one subdirectory per resolved category under both the watch root
// and the failed-upload root.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WatchDir, c.Paths.FailedDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, category := range c.ResolveCategories() {
		if err := os.MkdirAll(filepath.Join(c.Paths.WatchDir, category), 0o755); err != nil {
			return fmt.Errorf("create category directory %q: %w", category, err)
		}
	}
	return nil
}

// ResolveCategories returns the set of watched category names, either from the
// static configuration or by listing subdirectories of the watch root. The
// result is sorted for stable ordering. Hidden directories are skipped.
func (c *Config) ResolveCategories() []string {
	if len(c.Watcher.Categories) > 0 && !c.Watcher.AutoDiscover {
		out := make([]string, len(c.Watcher.Categories))
		copy(out, c.Watcher.Categories)
		sort.Strings(out)
		return out
	}

	var discovered []string
	entries, err := os.ReadDir(c.Paths.WatchDir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
				discovered = append(discovered, entry.Name())
			}
		}
	}

	if len(discovered) == 0 && len(c.Watcher.Categories) > 0 {
		discovered = append(discovered, c.Watcher.Categories...)
	}
	sort.Strings(discovered)
	return discovered
}

// CategoryPath returns the watch directory for the given category.
func (c *Config) CategoryPath(category string) string {
	return filepath.Join(c.Paths.WatchDir, category)
}

// FailedCategoryPath returns the failed-upload directory for the given category.
func (c *Config) FailedCategoryPath(category string) string {
	return filepath.Join(c.Paths.FailedDir, category)
}

// AllowsExtension reports whether the (dot-prefixed, case-insensitive)
// extension is on the watcher allow-list.
func (c *Config) AllowsExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimSpace(ext))
	for _, allowed := range c.Watcher.FileExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
