package types

import (
	"fmt"
	"image"
	"io"
)

// Page canvas dimensions (4x6 inches at 300dpi)
const (
	CanvasWidth  = 1200
	CanvasHeight = 1800
)

// Orientation is the portrait/landscape tag derived from image dimensions
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// MarshalText encodes the orientation by name
func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses "portrait" or "landscape"
func (o *Orientation) UnmarshalText(text []byte) error {
	switch string(text) {
	case "portrait":
		*o = Portrait
	case "landscape":
		*o = Landscape
	default:
		return fmt.Errorf("unknown orientation %q", text)
	}
	return nil
}

// OrientationOf returns Portrait when height >= width, Landscape otherwise.
// Square images are Portrait.
func OrientationOf(width, height int) Orientation {
	if height >= width {
		return Portrait
	}
	return Landscape
}

// SlotGeometry is the size of one placement region inside a page
type SlotGeometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Fixed slot geometries for each orientation
var (
	PortraitSlot  = SlotGeometry{Width: 600, Height: 900}
	LandscapeSlot = SlotGeometry{Width: 1200, Height: 900}
)

// Source is a raw, not yet decoded image resource
type Source struct {
	Name      string
	MediaType string
	// Open acquires the decode buffer. The returned reader is closed by the
	// classifier as soon as decoding finishes.
	Open func() (io.ReadCloser, error)
}

// DecodedImage is an in-memory bitmap with its orientation tag
type DecodedImage struct {
	ID          string
	Name        string
	Image       image.Image
	Width       int
	Height      int
	Orientation Orientation
}

// GridPage is one print sheet holding up to Capacity placed images
type GridPage struct {
	Orientation Orientation
	Number      int
	Image       *image.NRGBA
	Used        int
	Capacity    int
}

// Output holds all generated pages, numbered from 1 per orientation
type Output struct {
	Portrait  []GridPage
	Landscape []GridPage
}

// Total returns the number of pages across both orientations
func (o Output) Total() int {
	return len(o.Portrait) + len(o.Landscape)
}

// Stats is reported to the presentation layer after classification
type Stats struct {
	PortraitCount  int      `json:"portrait_count"`
	LandscapeCount int      `json:"landscape_count"`
	PortraitPages  int      `json:"portrait_pages"`
	LandscapePages int      `json:"landscape_pages"`
	TotalPages     int      `json:"total_pages"`
	Warning        *Warning `json:"warning,omitempty"`
}

// Warning carries the numeric facts behind an "N more needed" hint.
// A zero remainder means that orientation fills its pages exactly.
type Warning struct {
	PortraitRemainder  int `json:"portrait_remainder"`
	PortraitNeeded     int `json:"portrait_needed"`
	LandscapeRemainder int `json:"landscape_remainder"`
	LandscapeNeeded    int `json:"landscape_needed"`
}

// Messages renders the warning as one line per orientation that has a
// partially filled page
func (w Warning) Messages() []string {
	var msgs []string
	if w.PortraitRemainder > 0 {
		msgs = append(msgs, fmt.Sprintf("Portraits: add %d more for even grids of 4 (or %d slot%s will be empty)",
			w.PortraitNeeded, w.PortraitNeeded, plural(w.PortraitNeeded)))
	}
	if w.LandscapeRemainder > 0 {
		msgs = append(msgs, fmt.Sprintf("Landscapes: add %d more for even grids of 2 (or %d slot%s will be empty)",
			w.LandscapeNeeded, w.LandscapeNeeded, plural(w.LandscapeNeeded)))
	}
	return msgs
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
