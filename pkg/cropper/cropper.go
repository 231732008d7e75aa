package cropper

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/menta2k/photo-grid/pkg/types"
)

// SlotCropper scales and center-crops images so they cover a slot exactly
type SlotCropper struct {
	config CropConfig
	interp xdraw.Interpolator
}

// CropConfig holds configuration for slot cropping
type CropConfig struct {
	// Interpolation is one of nearest, approxbilinear, bilinear, catmullrom
	Interpolation string
}

// Supported interpolation names
var interpolators = map[string]xdraw.Interpolator{
	"nearest":        xdraw.NearestNeighbor,
	"approxbilinear": xdraw.ApproxBiLinear,
	"bilinear":       xdraw.BiLinear,
	"catmullrom":     xdraw.CatmullRom,
}

// InterpolationNames returns the accepted interpolation names
func InterpolationNames() []string {
	return []string{"nearest", "approxbilinear", "bilinear", "catmullrom"}
}

// New creates a new SlotCropper with default configuration
func New() *SlotCropper {
	c, _ := NewWithConfig(CropConfig{Interpolation: "catmullrom"})
	return c
}

// NewWithConfig creates a new SlotCropper with custom configuration
func NewWithConfig(config CropConfig) (*SlotCropper, error) {
	name := strings.ToLower(config.Interpolation)
	if name == "" {
		name = "catmullrom"
	}
	interp, ok := interpolators[name]
	if !ok {
		return nil, fmt.Errorf("unknown interpolation %q (use one of %s)", config.Interpolation, strings.Join(InterpolationNames(), ", "))
	}
	config.Interpolation = name
	return &SlotCropper{config: config, interp: interp}, nil
}

// Fill describes a crop-to-fill placement of an image inside a slot
type Fill struct {
	Scale        float64
	ScaledWidth  float64
	ScaledHeight float64
	OffsetX      float64
	OffsetY      float64
}

// Covers reports whether the scaled image covers the slot in both dimensions
func (f Fill) Covers(slot types.SlotGeometry) bool {
	return f.ScaledWidth >= float64(slot.Width) && f.ScaledHeight >= float64(slot.Height)
}

// ComputeFill returns the smallest uniform scale that covers the slot along
// with the center-crop offsets. Offsets are never negative.
func ComputeFill(width, height int, slot types.SlotGeometry) (Fill, error) {
	if width <= 0 || height <= 0 {
		return Fill{}, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if slot.Width <= 0 || slot.Height <= 0 {
		return Fill{}, fmt.Errorf("invalid slot dimensions %dx%d", slot.Width, slot.Height)
	}

	tw, th := float64(slot.Width), float64(slot.Height)
	scale := math.Max(tw/float64(width), th/float64(height))
	// Rounding can land the binding side a hair under the target
	scaledWidth := math.Max(float64(width)*scale, tw)
	scaledHeight := math.Max(float64(height)*scale, th)

	return Fill{
		Scale:        scale,
		ScaledWidth:  scaledWidth,
		ScaledHeight: scaledHeight,
		OffsetX:      math.Max(0, (scaledWidth-tw)/2),
		OffsetY:      math.Max(0, (scaledHeight-th)/2),
	}, nil
}

// CropResult contains the rendered slot bitmap and the transform used
type CropResult struct {
	Image *image.NRGBA
	Fill  Fill
}

// CropToFill renders img into a slot-sized bitmap. The scaled image is drawn at
// (-OffsetX, -OffsetY) and everything outside the slot is clipped.
func (c *SlotCropper) CropToFill(img image.Image, slot types.SlotGeometry) (CropResult, error) {
	if img == nil {
		return CropResult{}, errors.New("nil image")
	}
	bounds := img.Bounds()
	fill, err := ComputeFill(bounds.Dx(), bounds.Dy(), slot)
	if err != nil {
		return CropResult{}, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, slot.Width, slot.Height))
	c.interp.Transform(dst, fill.matrix(bounds.Min), img, bounds, xdraw.Src, nil)

	return CropResult{Image: dst, Fill: fill}, nil
}

// matrix maps source pixel coordinates to slot coordinates
func (f Fill) matrix(origin image.Point) f64.Aff3 {
	return f64.Aff3{
		f.Scale, 0, -f.OffsetX - f.Scale*float64(origin.X),
		0, f.Scale, -f.OffsetY - f.Scale*float64(origin.Y),
	}
}
