// Package photogrid lays photos out onto print-ready grid pages.
//
// Photos are classified by orientation, cropped to fill fixed slots and
// composed onto 1200x1800 pages (4x6 inches at 300dpi): portraits four to a
// page in a 2x2 grid, landscapes two to a page stacked vertically. The pages
// can then be packaged into a zip archive.
//
// Basic usage:
//
//	session := photogrid.New()
//
//	src, err := processing.NewProcessor().FileSource("photo.jpg")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	stats, err := session.Add(ctx, []types.Source{src})
//	if err != nil {
//		log.Printf("some photos failed to decode: %v", err)
//	}
//	fmt.Printf("%d grid pages\n", stats.TotalPages)
//
//	if _, err := session.Generate(); err != nil {
//		log.Fatal(err)
//	}
//
//	archive, err := session.ExportZip(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	os.WriteFile("photo_grids.zip", archive, 0o644)
//
// The package consists of four components:
//
// 1. Classifier (pkg/classifier): decodes sources and sorts them by orientation
// 2. Cropper (pkg/cropper): scales and center-crops a photo to cover a slot
// 3. Compositor (pkg/compositor): batches photos onto grid pages
// 4. Exporter (pkg/exporter): encodes pages and hands them to an archiver
package photogrid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/menta2k/photo-grid/pkg/classifier"
	"github.com/menta2k/photo-grid/pkg/compositor"
	"github.com/menta2k/photo-grid/pkg/cropper"
	"github.com/menta2k/photo-grid/pkg/exporter"
	"github.com/menta2k/photo-grid/pkg/processing"
	"github.com/menta2k/photo-grid/pkg/types"
)

// Version of the photo grid library
const Version = "1.0.0"

// DefaultThumbnailSize is the longer side of file list thumbnails
const DefaultThumbnailSize = 40

// ErrNoPages is returned when exporting without generated pages
var ErrNoPages = errors.New("no grid pages generated")

// Presenter receives the data a user interface needs to render
type Presenter interface {
	// StatsChanged is called whenever the set of photos changes
	StatsChanged(stats types.Stats)
	// PagesGenerated is called after composition with the ordered pages
	PagesGenerated(output types.Output)
}

// Options configures a Session
type Options struct {
	Classifier    classifier.Config
	Cropper       cropper.CropConfig
	Export        exporter.Config
	ThumbnailSize int
	Presenter     Presenter
}

// Entry describes one classified photo held by a session
type Entry struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Orientation types.Orientation `json:"orientation"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Thumbnail   []byte            `json:"-"`
}

// Session owns the photos and generated pages of one layout session.
// It is safe for concurrent use; Add, Replace and Reset run one at a time.
// Presenter callbacks must not call back into those three methods.
type Session struct {
	// run serializes whole classify runs against each other and Reset
	run sync.Mutex
	mu  sync.Mutex

	processor  *processing.Processor
	classifier *classifier.Classifier
	compositor *compositor.Compositor
	exporter   *exporter.Exporter
	presenter  Presenter
	thumbSize  int

	images     []types.DecodedImage
	thumbnails map[string][]byte
	output     *types.Output
}

// New creates a Session with default configuration
func New() *Session {
	s, _ := NewWithOptions(Options{})
	return s
}

// NewWithOptions creates a Session with custom configuration
func NewWithOptions(opts Options) (*Session, error) {
	processor := processing.NewProcessor()

	slotCropper, err := cropper.NewWithConfig(opts.Cropper)
	if err != nil {
		return nil, err
	}

	thumbSize := opts.ThumbnailSize
	if thumbSize <= 0 {
		thumbSize = DefaultThumbnailSize
	}

	return &Session{
		processor:  processor,
		classifier: classifier.NewWithConfig(processor, opts.Classifier),
		compositor: compositor.NewWithCropper(slotCropper),
		exporter:   exporter.NewWithConfig(processor, opts.Export),
		presenter:  opts.Presenter,
		thumbSize:  thumbSize,
		thumbnails: make(map[string][]byte),
	}, nil
}

// Add decodes and classifies sources and appends them to the session.
// Sources without an image media type are ignored. Photos that fail to decode
// are skipped; the returned error reports them while the stats still reflect
// every photo that was added. Previously generated pages are discarded.
func (s *Session) Add(ctx context.Context, sources []types.Source) (types.Stats, error) {
	s.run.Lock()
	defer s.run.Unlock()
	return s.add(ctx, sources)
}

// Replace clears the session and adds sources as a fresh run
func (s *Session) Replace(ctx context.Context, sources []types.Source) (types.Stats, error) {
	s.run.Lock()
	defer s.run.Unlock()

	s.mu.Lock()
	s.clearLocked()
	s.mu.Unlock()
	return s.add(ctx, sources)
}

func (s *Session) add(ctx context.Context, sources []types.Source) (types.Stats, error) {
	accepted, rejected := classifier.FilterImages(sources)
	for _, src := range rejected {
		log.Debug().Str("file", src.Name).Str("mime", src.MediaType).Msg("ignoring non-image source")
	}

	result, classifyErr := s.classifier.Classify(ctx, accepted)
	if classifyErr != nil && result.Count() == 0 && len(result.Failures) == 0 {
		// Cancelled before anything was classified
		return s.Stats(), classifyErr
	}

	thumbs := make(map[string][]byte, len(result.Images))
	for _, img := range result.Images {
		thumb, err := s.processor.ThumbnailJPEG(img.Image, s.thumbSize)
		if err != nil {
			log.Warn().Err(err).Str("file", img.Name).Msg("thumbnail failed")
			continue
		}
		thumbs[img.ID] = thumb
	}

	s.mu.Lock()
	s.images = append(s.images, result.Images...)
	for id, thumb := range thumbs {
		s.thumbnails[id] = thumb
	}
	s.output = nil
	stats := s.statsLocked()
	s.mu.Unlock()

	s.notifyStats(stats)
	return stats, classifyErr
}

// Remove drops a photo by ID and reports whether it was present
func (s *Session) Remove(id string) (types.Stats, bool) {
	s.mu.Lock()
	found := false
	for i, img := range s.images {
		if img.ID == id {
			s.images = append(s.images[:i:i], s.images[i+1:]...)
			delete(s.thumbnails, id)
			s.output = nil
			found = true
			break
		}
	}
	stats := s.statsLocked()
	s.mu.Unlock()

	if found {
		s.notifyStats(stats)
	}
	return stats, found
}

// Entries lists the session's photos in the order they were added
func (s *Session) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]Entry, len(s.images))
	for i, img := range s.images {
		entries[i] = Entry{
			ID:          img.ID,
			Name:        img.Name,
			Orientation: img.Orientation,
			Width:       img.Width,
			Height:      img.Height,
			Thumbnail:   s.thumbnails[img.ID],
		}
	}
	return entries
}

// Stats returns the current photo and page counts
func (s *Session) Stats() types.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

// Generate rebuilds every grid page from the current photos
func (s *Session) Generate() (types.Output, error) {
	s.mu.Lock()
	portraits, landscapes := classifier.Partition(s.images)
	output, err := s.compositor.ComposeAll(portraits, landscapes)
	if err != nil {
		s.mu.Unlock()
		return types.Output{}, fmt.Errorf("failed to compose grids: %w", err)
	}
	s.output = &output
	s.mu.Unlock()

	log.Info().
		Int("portrait_pages", len(output.Portrait)).
		Int("landscape_pages", len(output.Landscape)).
		Msg("generated grid pages")

	if s.presenter != nil {
		s.presenter.PagesGenerated(output)
	}
	return output, nil
}

// Output returns the generated pages, if any
func (s *Session) Output() (types.Output, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output == nil {
		return types.Output{}, false
	}
	return *s.output, true
}

// Export hands every generated page to archiver and returns the materialized blob
func (s *Session) Export(ctx context.Context, archiver exporter.Archiver) ([]byte, error) {
	output, ok := s.Output()
	if !ok || output.Total() == 0 {
		return nil, ErrNoPages
	}
	return s.exporter.Export(ctx, output, archiver)
}

// ExportZip exports the generated pages as an in-memory zip archive
func (s *Session) ExportZip(ctx context.Context) ([]byte, error) {
	return s.Export(ctx, exporter.NewZipArchiver(time.Now()))
}

// WritePreviews writes scaled page previews into dir
func (s *Session) WritePreviews(dir, format string, maxSize int) ([]string, error) {
	output, ok := s.Output()
	if !ok || output.Total() == 0 {
		return nil, ErrNoPages
	}
	return s.exporter.WritePreviews(output, dir, format, maxSize)
}

// Reset clears all photos and generated pages
func (s *Session) Reset() {
	s.run.Lock()
	defer s.run.Unlock()

	s.mu.Lock()
	s.clearLocked()
	stats := s.statsLocked()
	s.mu.Unlock()

	log.Debug().Msg("session reset")
	s.notifyStats(stats)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

func (s *Session) statsLocked() types.Stats {
	portraits, landscapes := classifier.Partition(s.images)
	return compositor.NewStats(len(portraits), len(landscapes))
}

func (s *Session) clearLocked() {
	s.images = nil
	s.thumbnails = make(map[string][]byte)
	s.output = nil
}

func (s *Session) notifyStats(stats types.Stats) {
	if s.presenter != nil {
		s.presenter.StatsChanged(stats)
	}
}
