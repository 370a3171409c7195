package fractal

import (
	"fmt"
	"image"
	"image/png"
	"io"
)

// Params is the capability contract shared by the fractal families.
// The type set is closed: a render picks one concrete family up front so the
// per-pixel loop never dispatches through an interface.
type Params[P any] interface {
	Mandelbrot | Julia

	// Iterate runs the escape-time recurrence for the LaneWidth pixels
	// starting at column i of row j.
	Iterate(width, height, i, j int) Sample
	// Shade converts one batch of iteration results to colors.
	Shade(s Sample) [LaneWidth]Pixel
	// NeedsRecompute reports whether going from old to the receiver changes
	// the iteration results, as opposed to only their coloring.
	NeedsRecompute(old P) bool
	Validate() error
}

// ImgProvider hands out a fully rendered image.
type ImgProvider interface {
	Image() *image.RGBA
}

// WritePNG encodes the image of p to w.
func WritePNG(w io.Writer, p ImgProvider) error {
	if err := png.Encode(w, p.Image()); err != nil {
		return fmt.Errorf("png.Encode: %w", err)
	}
	return nil
}
