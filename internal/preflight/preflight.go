package preflight

import (
	"context"

	"shutterpost/internal/config"
	"shutterpost/internal/services/blogger"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Minimum free space on the watch filesystem before the daemon warns.
const minFreeBytes = 512 << 20

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Watch directory", cfg.Paths.WatchDir))
	results = append(results, CheckDirectoryAccess("Failed directory", cfg.Paths.FailedDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckFreeSpace("Watch filesystem", cfg.Paths.WatchDir, minFreeBytes))

	client := blogger.NewClient(cfg.Blog)
	results = append(results, CheckBlog(ctx, client))

	if cfg.Captioning.Enabled {
		results = append(results, CheckCaptioner(cfg.Captioning))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
