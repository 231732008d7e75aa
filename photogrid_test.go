package photogrid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/menta2k/photo-grid/pkg/classifier"
	"github.com/menta2k/photo-grid/pkg/processing"
	"github.com/menta2k/photo-grid/pkg/types"
)

// createTestImage creates an encoded image with a bright center subject
func createTestImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func createSources(t *testing.T, prefix string, n, width, height int) []types.Source {
	t.Helper()
	p := processing.NewProcessor()
	data := createTestImage(t, width, height)
	sources := make([]types.Source, n)
	for i := range sources {
		sources[i] = p.BytesSource(fmt.Sprintf("%s%d.png", prefix, i+1), data)
	}
	return sources
}

// recordingPresenter keeps every notification
type recordingPresenter struct {
	stats   []types.Stats
	outputs []types.Output
}

func (r *recordingPresenter) StatsChanged(stats types.Stats) {
	r.stats = append(r.stats, stats)
}

func (r *recordingPresenter) PagesGenerated(output types.Output) {
	r.outputs = append(r.outputs, output)
}

func (r *recordingPresenter) lastStats() types.Stats {
	return r.stats[len(r.stats)-1]
}

func newSession(t *testing.T) (*Session, *recordingPresenter) {
	t.Helper()
	presenter := &recordingPresenter{}
	s, err := NewWithOptions(Options{Presenter: presenter})
	if err != nil {
		t.Fatalf("NewWithOptions failed: %v", err)
	}
	return s, presenter
}

func TestNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.classifier == nil || s.compositor == nil || s.exporter == nil {
		t.Error("Session components should be initialized")
	}
	if s.thumbSize != DefaultThumbnailSize {
		t.Errorf("Expected thumbnail size %d, got %d", DefaultThumbnailSize, s.thumbSize)
	}
}

func TestNewWithOptionsInvalidInterpolation(t *testing.T) {
	opts := Options{}
	opts.Cropper.Interpolation = "sinc"
	if _, err := NewWithOptions(opts); err == nil {
		t.Error("Expected error for unknown interpolation")
	}
}

func TestFivePortraits(t *testing.T) {
	s, presenter := newSession(t)

	stats, err := s.Add(context.Background(), createSources(t, "p", 5, 30, 45))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if stats.PortraitCount != 5 || stats.LandscapeCount != 0 || stats.TotalPages != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Warning == nil || stats.Warning.PortraitRemainder != 1 || stats.Warning.PortraitNeeded != 3 {
		t.Errorf("Expected warning with 3 more needed, got %+v", stats.Warning)
	}
	if len(presenter.stats) != 1 {
		t.Errorf("Expected one stats notification, got %d", len(presenter.stats))
	}

	output, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(output.Portrait) != 2 || len(output.Landscape) != 0 {
		t.Fatalf("Expected 2 portrait and 0 landscape pages, got %d and %d", len(output.Portrait), len(output.Landscape))
	}
	if output.Portrait[1].Used != 1 {
		t.Errorf("Expected last page to hold 1 photo, got %d", output.Portrait[1].Used)
	}
	if len(presenter.outputs) != 1 {
		t.Errorf("Expected one pages notification, got %d", len(presenter.outputs))
	}

	// The right half of a page with one photo stays blank
	if got := output.Portrait[1].Image.NRGBAAt(900, 450); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Expected blank slot to be white, got %v", got)
	}
}

func TestFourLandscapes(t *testing.T) {
	s, _ := newSession(t)

	stats, err := s.Add(context.Background(), createSources(t, "l", 4, 60, 40))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if stats.LandscapePages != 2 || stats.Warning != nil {
		t.Errorf("Expected 2 landscape pages and no warning, got %+v", stats)
	}

	output, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for _, page := range output.Landscape {
		if page.Used != 2 {
			t.Errorf("Page %d: expected 2 photos, got %d", page.Number, page.Used)
		}
	}
}

func TestEmptySession(t *testing.T) {
	s, _ := newSession(t)

	stats := s.Stats()
	if stats.PortraitCount != 0 || stats.LandscapeCount != 0 || stats.TotalPages != 0 || stats.Warning != nil {
		t.Errorf("Expected empty stats, got %+v", stats)
	}

	output, err := s.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if output.Total() != 0 {
		t.Errorf("Expected no pages, got %d", output.Total())
	}

	if _, err := s.ExportZip(context.Background()); !errors.Is(err, ErrNoPages) {
		t.Errorf("Expected ErrNoPages, got %v", err)
	}
}

func TestAddAppendsAndInvalidatesOutput(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, createSources(t, "p", 2, 30, 45)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Generate(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Output(); !ok {
		t.Fatal("Expected generated output")
	}

	stats, err := s.Add(ctx, createSources(t, "l", 1, 60, 40))
	if err != nil {
		t.Fatal(err)
	}
	if stats.PortraitCount != 2 || stats.LandscapeCount != 1 {
		t.Errorf("Expected photos to accumulate, got %+v", stats)
	}
	if _, ok := s.Output(); ok {
		t.Error("Adding photos should discard stale pages")
	}

	entries := s.Entries()
	if len(entries) != 3 || entries[0].Name != "p1.png" || entries[2].Name != "l1.png" {
		t.Errorf("Unexpected entry order: %+v", entries)
	}
}

func TestReplace(t *testing.T) {
	s, presenter := newSession(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, createSources(t, "p", 3, 30, 45)); err != nil {
		t.Fatal(err)
	}
	stats, err := s.Replace(ctx, createSources(t, "l", 2, 60, 40))
	if err != nil {
		t.Fatal(err)
	}
	if stats.PortraitCount != 0 || stats.LandscapeCount != 2 {
		t.Errorf("Expected only the new photos, got %+v", stats)
	}
	if len(presenter.stats) != 2 {
		t.Errorf("Expected one notification per run, got %d", len(presenter.stats))
	}
}

// gatedSource blocks in Open until release is closed; started is closed on entry
func gatedSource(t *testing.T, name string, started, release chan struct{}) types.Source {
	t.Helper()
	data := createTestImage(t, 30, 45)
	var once sync.Once
	return types.Source{
		Name:      name,
		MediaType: "image/png",
		Open: func() (io.ReadCloser, error) {
			once.Do(func() { close(started) })
			<-release
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestConcurrentReplaceKeepsOneRun(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	started, release := make(chan struct{}), make(chan struct{})
	first := []types.Source{gatedSource(t, "a.png", started, release)}
	second := createSources(t, "b", 1, 30, 45)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Replace(ctx, first)
	}()
	<-started
	go func() {
		defer wg.Done()
		s.Replace(ctx, second)
	}()
	close(release)
	wg.Wait()

	entries := s.Entries()
	if len(entries) != 1 || entries[0].Name != "b1.png" {
		t.Errorf("Expected only the last run's photo, got %+v", entries)
	}
}

func TestResetWaitsForRunningAdd(t *testing.T) {
	s, presenter := newSession(t)

	started, release := make(chan struct{}), make(chan struct{})
	sources := []types.Source{gatedSource(t, "a.png", started, release)}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Add(context.Background(), sources)
	}()
	<-started
	go func() {
		defer wg.Done()
		s.Reset()
	}()
	close(release)
	wg.Wait()

	if n := len(s.Entries()); n != 0 {
		t.Errorf("Expected reset to clear the finished run, got %d entries", n)
	}
	if presenter.lastStats().PortraitCount != 0 {
		t.Error("Last notification should be the reset")
	}
}

func TestAddSkipsBadSources(t *testing.T) {
	s, _ := newSession(t)
	p := processing.NewProcessor()

	sources := createSources(t, "p", 2, 30, 45)
	sources = append(sources,
		p.BytesSource("readme.txt", []byte("just some text")),
		types.Source{
			Name:      "corrupt.jpg",
			MediaType: "image/jpeg",
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader([]byte{0xff, 0xd8, 0xff, 0x00})), nil
			},
		},
	)

	stats, err := s.Add(context.Background(), sources)
	if err == nil {
		t.Fatal("Expected decode error for corrupt source")
	}

	var decodeErr *classifier.DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Name != "corrupt.jpg" {
		t.Errorf("Expected DecodeError for corrupt.jpg, got %v", err)
	}
	if errors.Is(err, classifier.ErrNotImage) {
		t.Error("Non-image sources should be filtered, not reported")
	}
	if stats.PortraitCount != 2 {
		t.Errorf("Expected good photos to be kept, got %+v", stats)
	}
}

func TestEntriesThumbnails(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.Add(context.Background(), createSources(t, "l", 1, 200, 100)); err != nil {
		t.Fatal(err)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Orientation != types.Landscape || entries[0].Width != 200 || entries[0].Height != 100 {
		t.Errorf("Unexpected entry: %+v", entries[0])
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(entries[0].Thumbnail))
	if err != nil {
		t.Fatalf("Thumbnail is not a JPEG: %v", err)
	}
	if cfg.Width != DefaultThumbnailSize || cfg.Height != DefaultThumbnailSize/2 {
		t.Errorf("Expected %dx%d thumbnail, got %dx%d", DefaultThumbnailSize, DefaultThumbnailSize/2, cfg.Width, cfg.Height)
	}
}

func TestRemove(t *testing.T) {
	s, presenter := newSession(t)
	if _, err := s.Add(context.Background(), createSources(t, "p", 4, 30, 45)); err != nil {
		t.Fatal(err)
	}

	id := s.Entries()[1].ID
	stats, ok := s.Remove(id)
	if !ok {
		t.Fatal("Expected entry to be removed")
	}
	if stats.PortraitCount != 3 || stats.Warning == nil || stats.Warning.PortraitNeeded != 1 {
		t.Errorf("Unexpected stats after remove: %+v", stats)
	}
	if presenter.lastStats().PortraitCount != 3 {
		t.Error("Presenter should receive updated stats")
	}

	if _, ok := s.Remove(id); ok {
		t.Error("Removing twice should report not found")
	}
}

func TestReset(t *testing.T) {
	s, presenter := newSession(t)
	if _, err := s.Add(context.Background(), createSources(t, "p", 3, 30, 45)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Generate(); err != nil {
		t.Fatal(err)
	}

	s.Reset()

	if len(s.Entries()) != 0 {
		t.Error("Expected no entries after reset")
	}
	if _, ok := s.Output(); ok {
		t.Error("Expected no output after reset")
	}
	if presenter.lastStats().TotalPages != 0 {
		t.Error("Presenter should receive empty stats after reset")
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, createSources(t, "p", 3, 37, 51)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, createSources(t, "l", 3, 83, 47)); err != nil {
		t.Fatal(err)
	}

	first, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	all := func(o types.Output) []types.GridPage {
		return append(append([]types.GridPage{}, o.Portrait...), o.Landscape...)
	}
	a, b := all(first), all(second)
	if len(a) != len(b) {
		t.Fatalf("Page counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !bytes.Equal(a[i].Image.Pix, b[i].Image.Pix) {
			t.Errorf("Page %d differs between runs", i)
		}
	}
}

func TestExportZip(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, createSources(t, "p", 5, 30, 45)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, createSources(t, "l", 1, 60, 40)); err != nil {
		t.Fatal(err)
	}

	if _, err := s.ExportZip(ctx); !errors.Is(err, ErrNoPages) {
		t.Errorf("Expected ErrNoPages before Generate, got %v", err)
	}

	if _, err := s.Generate(); err != nil {
		t.Fatal(err)
	}
	blob, err := s.ExportZip(ctx)
	if err != nil {
		t.Fatalf("ExportZip failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		t.Fatalf("Invalid archive: %v", err)
	}

	expected := []string{"portrait_grid_01.jpg", "portrait_grid_02.jpg", "landscape_grid_01.jpg"}
	if len(zr.File) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(zr.File))
	}
	for i, f := range zr.File {
		if f.Name != expected[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, expected[i], f.Name)
		}
	}
}

func TestWritePreviews(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.WritePreviews(t.TempDir(), "jpg", 100); !errors.Is(err, ErrNoPages) {
		t.Errorf("Expected ErrNoPages before Generate, got %v", err)
	}

	if _, err := s.Add(context.Background(), createSources(t, "l", 2, 60, 40)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Generate(); err != nil {
		t.Fatal(err)
	}

	paths, err := s.WritePreviews(t.TempDir(), "jpg", 100)
	if err != nil {
		t.Fatalf("WritePreviews failed: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("Expected 1 preview, got %d", len(paths))
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() != Version {
		t.Errorf("Expected version %s, got %s", Version, GetVersion())
	}
}
