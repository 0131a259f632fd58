// Package convert renders non-JPEG images to JPEG before upload. The blog
// API accepts JPEG everywhere, so formats outside the passthrough set are
// re-encoded at a configurable quality and the derived file is uploaded in
// place of the original.
package convert

import (
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"shutterpost/internal/config"
	"shutterpost/internal/fileutil"
	"shutterpost/internal/logging"
	"shutterpost/internal/services"
)

// Converter re-encodes configured source formats to JPEG.
type Converter struct {
	cfg     config.Conversion
	formats map[string]struct{}
	logger  *slog.Logger
}

// New constructs a Converter from the conversion configuration section.
func New(cfg config.Conversion, logger *slog.Logger) *Converter {
	formats := make(map[string]struct{}, len(cfg.Formats))
	for _, ext := range cfg.Formats {
		formats[normalizeExt(ext)] = struct{}{}
	}
	return &Converter{
		cfg:     cfg,
		formats: formats,
		logger:  logging.NewComponentLogger(logger, "convert"),
	}
}

// Needed reports whether path's extension is configured for conversion.
// Always false when conversion is disabled.
func (c *Converter) Needed(path string) bool {
	if !c.cfg.Enabled {
		return false
	}
	_, ok := c.formats[normalizeExt(filepath.Ext(path))]
	return ok
}

// ConvertIfNeeded converts path when its format requires it, returning the
// derived path or the empty string when the file uploads as is.
func (c *Converter) ConvertIfNeeded(path string) (string, error) {
	if !c.Needed(path) {
		return "", nil
	}
	return c.Convert(path)
}

// Convert decodes path and writes a JPEG sibling named <base>_converted.jpg
// (with a numeric suffix if that name is taken). The original is left in
// place; disposition of both files is the caller's concern. Failures are
// classified as validation errors since they indicate an unreadable or
// unsupported image.
func (c *Converter) Convert(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "convert", "open", "open source image", err)
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "convert", "decode", "decode source image", err)
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	dest := fileutil.UniquePath(base + "_converted.jpg")

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create converted file: %w", err)
	}
	defer out.Close()

	quality := c.cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: quality}); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("flush converted file: %w", err)
	}

	c.logger.Info("image converted",
		logging.String(logging.FieldFile, path),
		logging.String("source_format", format),
		logging.String("output", dest),
		logging.Int("quality", quality),
	)
	return dest, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
