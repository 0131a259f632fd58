// Package testsupport provides helpers shared by package tests: configs
// seeded with unique temp directories, history stores with registered
// cleanup, and watched-file fixtures.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shutterpost/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "upload")
	cfgVal.Paths.FailedDir = filepath.Join(base, "failed")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Blog.Name = "testblog"
	cfgVal.Blog.APIKey = "test-key"
	cfgVal.Workflow.EventPollInterval = 1

	// Keep deliberate pipeline delays out of test runtime.
	cfgVal.Readiness.SettleDelayMS = 1
	cfgVal.Readiness.RecheckDelayMS = 1
	cfgVal.RateLimit.UploadDelay = 0

	builder := &configBuilder{t: t, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}

	if err := cfgVal.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithCategories pins a static category list (disabling auto-discovery) and
// creates the matching watch directories.
func WithCategories(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watcher.AutoDiscover = false
		b.cfg.Watcher.Categories = names
	}
}

// WithCommonTags sets the configured common tags on the test config.
func WithCommonTags(tags ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Blog.CommonTags = tags
	}
}

// WriteWatchedFile drops a file into the category's watch directory and
// returns its path.
func WriteWatchedFile(t testing.TB, cfg *config.Config, category, name string, data []byte) string {
	t.Helper()
	dir := cfg.CategoryPath(category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir category: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write watched file: %v", err)
	}
	return path
}
