// Package filer owns terminal file dispositions: originals are deleted
// after a successful publish and quarantined under the failed tree
// otherwise. It also sweeps the failed tree by age so quarantined files
// do not accumulate forever.
package filer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"shutterpost/internal/config"
	"shutterpost/internal/fileutil"
	"shutterpost/internal/logging"
)

// Filer applies terminal dispositions for pipeline passes.
type Filer struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs a Filer bound to the configured watch and failed trees.
func New(cfg *config.Config, logger *slog.Logger) *Filer {
	return &Filer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "filer"),
	}
}

// Delete removes the original after a successful publish. A file that is
// already gone counts as deleted.
func (f *Filer) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete original: %w", err)
	}
	f.logger.Debug("original removed",
		logging.String(logging.FieldFile, path),
	)
	return nil
}

// MoveToFailed relocates path into failed/<category>/, creating the
// category directory on demand. Name collisions get a _1, _2 suffix
// before the extension. Returns the destination path.
func (f *Filer) MoveToFailed(path, category string) (string, error) {
	destDir := f.cfg.FailedCategoryPath(category)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create failed directory: %w", err)
	}

	dest := fileutil.UniquePath(filepath.Join(destDir, filepath.Base(path)))
	if err := fileutil.MoveFile(path, dest); err != nil {
		return "", fmt.Errorf("move to failed: %w", err)
	}

	f.logger.Info("original quarantined",
		logging.String(logging.FieldFile, path),
		logging.String(logging.FieldCategory, category),
		logging.String("destination", dest),
	)
	return dest, nil
}

// DiscardArtifact removes a derived file (a conversion output) that is no
// longer needed. Missing artifacts are ignored.
func (f *Filer) DiscardArtifact(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("artifact removal failed",
			logging.String(logging.FieldFile, path),
			logging.Error(err),
		)
	}
}

// CategoryStats summarizes one category's quarantined files.
type CategoryStats struct {
	Files int
	Bytes int64
}

// FailedStats summarizes the whole failed tree.
type FailedStats struct {
	Categories map[string]CategoryStats
	TotalFiles int
	TotalBytes int64
}

// Stats walks the failed tree and reports per-category file counts and
// sizes. An absent failed tree yields empty stats.
func (f *Filer) Stats() (FailedStats, error) {
	stats := FailedStats{Categories: make(map[string]CategoryStats)}
	root := f.cfg.Paths.FailedDir

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("read failed tree: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		category := entry.Name()
		var cs CategoryStats
		err := filepath.WalkDir(filepath.Join(root, category), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			cs.Files++
			cs.Bytes += info.Size()
			return nil
		})
		if err != nil {
			return stats, fmt.Errorf("walk failed category %s: %w", category, err)
		}
		if cs.Files > 0 {
			stats.Categories[category] = cs
		}
		stats.TotalFiles += cs.Files
		stats.TotalBytes += cs.Bytes
	}
	return stats, nil
}

// Sweep deletes quarantined files whose modification time is older than
// the configured retention window and prunes category directories left
// empty. A retention of zero disables the sweep.
func (f *Filer) Sweep(now time.Time) (int, error) {
	retention := f.cfg.Cleanup.FailedRetentionDays
	if retention <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -retention)
	root := f.cfg.Paths.FailedDir

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read failed tree: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			f.logger.Warn("sweep skipped category",
				logging.String(logging.FieldCategory, entry.Name()),
				logging.Error(err),
			)
			continue
		}
		remaining := 0
		for _, file := range files {
			if file.IsDir() {
				remaining++
				continue
			}
			info, err := file.Info()
			if err != nil {
				remaining++
				continue
			}
			if info.ModTime().After(cutoff) {
				remaining++
				continue
			}
			path := filepath.Join(dir, file.Name())
			if err := os.Remove(path); err != nil {
				f.logger.Warn("sweep removal failed",
					logging.String(logging.FieldFile, path),
					logging.Error(err),
				)
				remaining++
				continue
			}
			removed++
		}
		if remaining == 0 {
			_ = os.Remove(dir)
		}
	}

	if removed > 0 {
		f.logger.Info("failed tree swept",
			logging.Int("removed", removed),
			logging.Int("retention_days", retention),
		)
	}
	return removed, nil
}
