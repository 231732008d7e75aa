package compositor

import (
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"

	"github.com/menta2k/photo-grid/pkg/cropper"
	"github.com/menta2k/photo-grid/pkg/types"
)

// Layout describes the fixed slot arrangement of one page type
type Layout struct {
	Orientation types.Orientation
	Slot        types.SlotGeometry
	Positions   []image.Point
}

// Capacity is the number of slots on a page
func (l Layout) Capacity() int {
	return len(l.Positions)
}

// Page layouts
var (
	// PortraitLayout is a 2x2 grid of 600x900 slots
	PortraitLayout = Layout{
		Orientation: types.Portrait,
		Slot:        types.PortraitSlot,
		Positions: []image.Point{
			{0, 0},
			{600, 0},
			{0, 900},
			{600, 900},
		},
	}

	// LandscapeLayout stacks two 1200x900 slots
	LandscapeLayout = Layout{
		Orientation: types.Landscape,
		Slot:        types.LandscapeSlot,
		Positions: []image.Point{
			{0, 0},
			{0, 900},
		},
	}
)

// LayoutFor returns the layout used for an orientation
func LayoutFor(o types.Orientation) Layout {
	if o == types.Landscape {
		return LandscapeLayout
	}
	return PortraitLayout
}

// Compositor places cropped images onto fixed-size grid pages
type Compositor struct {
	cropper *cropper.SlotCropper
}

// New creates a Compositor with the default cropper
func New() *Compositor {
	return &Compositor{cropper: cropper.New()}
}

// NewWithCropper creates a Compositor using a custom cropper
func NewWithCropper(c *cropper.SlotCropper) *Compositor {
	return &Compositor{cropper: c}
}

// Range is a half-open [Start, End) batch of sequence indexes
type Range struct {
	Start int
	End   int
}

// Len returns the number of items in the batch
func (r Range) Len() int {
	return r.End - r.Start
}

// Batch splits n items into consecutive batches of size; the last may be partial
func Batch(n, size int) []Range {
	if n <= 0 || size <= 0 {
		return nil
	}
	batches := make([]Range, 0, PageCount(n, size))
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		batches = append(batches, Range{Start: start, End: end})
	}
	return batches
}

// PageCount returns ceil(n / capacity)
func PageCount(n, capacity int) int {
	if n <= 0 || capacity <= 0 {
		return 0
	}
	return (n + capacity - 1) / capacity
}

// NewStats computes page totals and the uneven-grid warning for the given counts
func NewStats(portraits, landscapes int) types.Stats {
	stats := types.Stats{
		PortraitCount:  portraits,
		LandscapeCount: landscapes,
		PortraitPages:  PageCount(portraits, PortraitLayout.Capacity()),
		LandscapePages: PageCount(landscapes, LandscapeLayout.Capacity()),
	}
	stats.TotalPages = stats.PortraitPages + stats.LandscapePages

	pr := portraits % PortraitLayout.Capacity()
	lr := landscapes % LandscapeLayout.Capacity()
	if pr != 0 || lr != 0 {
		w := &types.Warning{PortraitRemainder: pr, LandscapeRemainder: lr}
		if pr != 0 {
			w.PortraitNeeded = PortraitLayout.Capacity() - pr
		}
		if lr != 0 {
			w.LandscapeNeeded = LandscapeLayout.Capacity() - lr
		}
		stats.Warning = w
	}
	return stats
}

// Compose lays images out in batches, one page per batch, in sequence order
func (c *Compositor) Compose(images []types.DecodedImage, layout Layout) ([]types.GridPage, error) {
	batches := Batch(len(images), layout.Capacity())
	pages := make([]types.GridPage, 0, len(batches))

	for i, batch := range batches {
		page, err := c.composePage(images[batch.Start:batch.End], layout)
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w", layout.Orientation, i+1, err)
		}
		page.Number = i + 1
		pages = append(pages, page)

		log.Debug().
			Str("orientation", layout.Orientation.String()).
			Int("page", page.Number).
			Int("used", page.Used).
			Msg("composed grid page")
	}

	return pages, nil
}

// ComposeAll builds every portrait and landscape page
func (c *Compositor) ComposeAll(portraits, landscapes []types.DecodedImage) (types.Output, error) {
	portraitPages, err := c.Compose(portraits, PortraitLayout)
	if err != nil {
		return types.Output{}, err
	}

	landscapePages, err := c.Compose(landscapes, LandscapeLayout)
	if err != nil {
		return types.Output{}, err
	}

	return types.Output{Portrait: portraitPages, Landscape: landscapePages}, nil
}

func (c *Compositor) composePage(batch []types.DecodedImage, layout Layout) (types.GridPage, error) {
	if len(batch) > layout.Capacity() {
		return types.GridPage{}, fmt.Errorf("batch of %d exceeds page capacity %d", len(batch), layout.Capacity())
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, types.CanvasWidth, types.CanvasHeight))
	xdraw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, xdraw.Src)

	for j, img := range batch {
		result, err := c.cropper.CropToFill(img.Image, layout.Slot)
		if err != nil {
			return types.GridPage{}, fmt.Errorf("slot %d (%s): %w", j, img.Name, err)
		}

		pos := layout.Positions[j]
		slotRect := image.Rectangle{Min: pos, Max: pos.Add(image.Pt(layout.Slot.Width, layout.Slot.Height))}
		xdraw.Draw(canvas, slotRect, result.Image, image.Point{}, xdraw.Over)
	}

	return types.GridPage{
		Orientation: layout.Orientation,
		Image:       canvas,
		Used:        len(batch),
		Capacity:    layout.Capacity(),
	}, nil
}
