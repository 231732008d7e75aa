package processing

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/photo-grid/pkg/types"
)

// Encoding quality used for the small file list thumbnails
const ThumbnailQuality = 70

// Processor handles decoding, encoding and intake of raw image sources
type Processor struct {
	client *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Decode decodes an image from a reader. EXIF orientation is applied so the
// reported dimensions match what a viewer would display.
func (p *Processor) Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return p.DecodeBytes(data)
}

// DecodeBytes decodes an image from byte data with WebP support
func (p *Processor) DecodeBytes(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format: %w", err)
}

// IsImageMediaType reports whether a media type declares an image
func IsImageMediaType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

// FileSource creates a source for a local file. The media type is sniffed
// from the file's magic bytes, not its extension.
func (p *Processor) FileSource(path string) (types.Source, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return types.Source{}, fmt.Errorf("failed to detect file type: %w", err)
	}

	return types.Source{
		Name:      filepath.Base(path),
		MediaType: mtype.String(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// BytesSource creates a source for in-memory image data
func (p *Processor) BytesSource(name string, data []byte) types.Source {
	return types.Source{
		Name:      name,
		MediaType: mimetype.Detect(data).String(),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// URLSource downloads an image and wraps it as a source
func (p *Processor) URLSource(imageURL string) (types.Source, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return types.Source{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return types.Source{}, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return types.Source{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Photo-Grid/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return types.Source{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Source{}, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !IsImageMediaType(contentType) {
		return types.Source{}, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Source{}, fmt.Errorf("failed to read image data: %w", err)
	}

	name := filepath.Base(parsedURL.Path)
	if name == "." || name == "/" {
		name = parsedURL.Host
	}

	return p.BytesSource(name, data), nil
}

// Encode writes an image in the given format (jpg, png or webp)
func (p *Processor) Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch strings.ToLower(format) {
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	case "png":
		return imaging.Encode(w, img, imaging.PNG)
	default: // jpg/jpeg
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
}

// EncodeJPEG encodes an image as JPEG and returns the bytes
func (p *Processor) EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf, img, "jpg", quality); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := p.Encode(f, img, format, quality); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

// Thumbnail scales an image so its longer side equals maxSize
func (p *Processor) Thumbnail(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, maxSize, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxSize, imaging.Lanczos)
}

// ThumbnailJPEG returns a small JPEG thumbnail suitable for a file list
func (p *Processor) ThumbnailJPEG(img image.Image, maxSize int) ([]byte, error) {
	return p.EncodeJPEG(p.Thumbnail(img, maxSize), ThumbnailQuality)
}
