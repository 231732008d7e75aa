package exporter

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/photo-grid/internal/utils"
	"github.com/menta2k/photo-grid/pkg/processing"
	"github.com/menta2k/photo-grid/pkg/types"
)

const (
	// DefaultQuality is the JPEG quality used for page entries
	DefaultQuality = 95
	// DefaultArchiveName is the file name offered for download
	DefaultArchiveName = "photo_grids.zip"
)

// Encoding hints how an entry's bytes are encoded
type Encoding string

const (
	EncodingJPEG Encoding = "image/jpeg"
	EncodingText Encoding = "text/plain"
)

// Archiver collects named entries and produces one archive blob
type Archiver interface {
	AddEntry(name string, data []byte, hint Encoding) error
	Materialize() ([]byte, error)
}

// ErrMaterialized is returned when an archiver is used after Materialize
var ErrMaterialized = errors.New("archive already materialized")

// Exporter encodes grid pages and hands them to an Archiver
type Exporter struct {
	processor *processing.Processor
	config    Config
}

// Config holds configuration for page export
type Config struct {
	Quality int
}

// New creates an Exporter with default quality
func New() *Exporter {
	return NewWithConfig(processing.NewProcessor(), Config{Quality: DefaultQuality})
}

// NewWithConfig creates an Exporter with custom configuration
func NewWithConfig(processor *processing.Processor, config Config) *Exporter {
	if config.Quality < 1 || config.Quality > 100 {
		config.Quality = DefaultQuality
	}
	if processor == nil {
		processor = processing.NewProcessor()
	}
	return &Exporter{processor: processor, config: config}
}

// EntryName returns the archive entry name for the n-th page (1-based)
func EntryName(o types.Orientation, n int) string {
	return fmt.Sprintf("%s_grid_%02d.jpg", o, n)
}

// Export encodes every portrait page, then every landscape page, adds them
// to the archiver and materializes it. Any archiver failure aborts the export.
func (e *Exporter) Export(ctx context.Context, output types.Output, archiver Archiver) ([]byte, error) {
	for _, pages := range [][]types.GridPage{output.Portrait, output.Landscape} {
		for i, page := range pages {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			name := EntryName(page.Orientation, i+1)
			data, err := e.processor.EncodeJPEG(page.Image, e.config.Quality)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s: %w", name, err)
			}

			if err := archiver.AddEntry(name, data, EncodingJPEG); err != nil {
				return nil, fmt.Errorf("failed to add %s: %w", name, err)
			}

			log.Debug().Str("entry", name).Str("size", utils.FormatFileSize(int64(len(data)))).Msg("added page")
		}
	}

	blob, err := archiver.Materialize()
	if err != nil {
		return nil, fmt.Errorf("failed to materialize archive: %w", err)
	}

	log.Info().
		Int("pages", output.Total()).
		Str("size", utils.FormatFileSize(int64(len(blob)))).
		Msg("archive ready")

	return blob, nil
}

// WritePreviews writes page previews into dir and returns the paths in page
// order. Pages are scaled so the longer side is maxSize; 0 keeps full size.
func (e *Exporter) WritePreviews(output types.Output, dir, format string, maxSize int) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}

	var paths []string
	for _, pages := range [][]types.GridPage{output.Portrait, output.Landscape} {
		for i, page := range pages {
			path := utils.GenerateOutputFilename(EntryName(page.Orientation, i+1), dir, "", "_preview", format)

			var preview image.Image = page.Image
			if maxSize > 0 {
				preview = e.processor.Thumbnail(page.Image, maxSize)
			}
			if err := e.processor.SaveImage(preview, path, format, e.config.Quality); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}
