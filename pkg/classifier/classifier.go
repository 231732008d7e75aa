package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/photo-grid/pkg/processing"
	"github.com/menta2k/photo-grid/pkg/types"
)

// ErrNotImage is returned for sources that do not declare an image media type
var ErrNotImage = errors.New("source is not an image")

// Classifier decodes raw sources and sorts them by orientation
type Classifier struct {
	processor *processing.Processor
	config    Config
}

// Config holds configuration for the classifier
type Config struct {
	// Workers is the number of concurrent decodes; 1 decodes sequentially
	Workers int
	// Progress, if set, is called after each source is handled
	Progress func(done, total int)
}

// New creates a new Classifier that decodes sequentially
func New() *Classifier {
	return &Classifier{
		processor: processing.NewProcessor(),
		config:    Config{Workers: 1},
	}
}

// NewWithConfig creates a new Classifier with custom configuration
func NewWithConfig(processor *processing.Processor, config Config) *Classifier {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if processor == nil {
		processor = processing.NewProcessor()
	}
	return &Classifier{processor: processor, config: config}
}

// DecodeError reports a source that could not be decoded
type DecodeError struct {
	Index int
	Name  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Result is the stable partition of decoded images by orientation
type Result struct {
	// Images holds every decoded image in input order
	Images     []types.DecodedImage
	Portraits  []types.DecodedImage
	Landscapes []types.DecodedImage
	Failures   []*DecodeError
}

// Count returns the number of successfully classified images
func (r Result) Count() int {
	return len(r.Portraits) + len(r.Landscapes)
}

// FilterImages splits sources into those declaring an image media type and the rest
func FilterImages(sources []types.Source) (images, rejected []types.Source) {
	for _, src := range sources {
		if processing.IsImageMediaType(src.MediaType) {
			images = append(images, src)
		} else {
			rejected = append(rejected, src)
		}
	}
	return images, rejected
}

// Partition splits images by orientation, keeping input order within each list
func Partition(images []types.DecodedImage) (portraits, landscapes []types.DecodedImage) {
	for _, img := range images {
		if img.Orientation == types.Portrait {
			portraits = append(portraits, img)
		} else {
			landscapes = append(landscapes, img)
		}
	}
	return portraits, landscapes
}

// Decode decodes one source. The source's reader is closed before returning.
func (c *Classifier) Decode(src types.Source) (types.DecodedImage, error) {
	if !processing.IsImageMediaType(src.MediaType) {
		return types.DecodedImage{}, fmt.Errorf("%w (media type %q)", ErrNotImage, src.MediaType)
	}
	if src.Open == nil {
		return types.DecodedImage{}, errors.New("source has no opener")
	}

	rc, err := src.Open()
	if err != nil {
		return types.DecodedImage{}, fmt.Errorf("failed to open source: %w", err)
	}
	defer rc.Close()

	img, err := c.processor.Decode(rc)
	if err != nil {
		return types.DecodedImage{}, err
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return types.DecodedImage{}, fmt.Errorf("invalid image dimensions %dx%d", bounds.Dx(), bounds.Dy())
	}

	return types.DecodedImage{
		ID:          uuid.NewString(),
		Name:        src.Name,
		Image:       img,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Orientation: types.OrientationOf(bounds.Dx(), bounds.Dy()),
	}, nil
}

// Classify decodes every source and partitions the results by orientation.
// A failing source is skipped and recorded in Result.Failures; the returned
// error joins all failures and is nil only when every source decoded.
// A cancelled context aborts the run.
func (c *Classifier) Classify(ctx context.Context, sources []types.Source) (Result, error) {
	decoded := make([]types.DecodedImage, len(sources))
	errs := make([]error, len(sources))

	var err error
	if c.config.Workers > 1 && len(sources) > 1 {
		err = c.decodeConcurrently(ctx, sources, decoded, errs)
	} else {
		err = c.decodeSequentially(ctx, sources, decoded, errs)
	}
	if err != nil {
		return Result{}, err
	}

	var result Result
	for i := range sources {
		if errs[i] != nil {
			de := &DecodeError{Index: i, Name: sources[i].Name, Err: errs[i]}
			result.Failures = append(result.Failures, de)
			log.Warn().Err(errs[i]).Str("file", sources[i].Name).Msg("decode failed; skipping")
			continue
		}
		result.Images = append(result.Images, decoded[i])
	}
	result.Portraits, result.Landscapes = Partition(result.Images)

	log.Info().
		Int("portraits", len(result.Portraits)).
		Int("landscapes", len(result.Landscapes)).
		Int("failed", len(result.Failures)).
		Msg("classified images")

	if len(result.Failures) > 0 {
		joined := make([]error, len(result.Failures))
		for i, f := range result.Failures {
			joined[i] = f
		}
		return result, errors.Join(joined...)
	}
	return result, nil
}

func (c *Classifier) decodeSequentially(ctx context.Context, sources []types.Source, decoded []types.DecodedImage, errs []error) error {
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		decoded[i], errs[i] = c.Decode(src)
		c.report(i+1, len(sources))
	}
	return nil
}

// decodeConcurrently uses a bounded pool; results land at their input index
func (c *Classifier) decodeConcurrently(ctx context.Context, sources []types.Source, decoded []types.DecodedImage, errs []error) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, c.config.Workers)
	done := 0

	for i := range sources {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, src types.Source) {
			defer wg.Done()
			defer func() { <-sem }()

			decoded[idx], errs[idx] = c.Decode(src)

			mu.Lock()
			done++
			c.report(done, len(sources))
			mu.Unlock()
		}(i, sources[i])
	}
	wg.Wait()

	return ctx.Err()
}

func (c *Classifier) report(done, total int) {
	if c.config.Progress != nil {
		c.config.Progress(done, total)
	}
}
