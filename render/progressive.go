package render

import (
	"context"
	"fmt"
	"image"
	"slices"
	"sync"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"

	"github.com/marben/fractal"
)

// DefaultDownscales are the passes a Progressive renders when none are given.
var DefaultDownscales = []int{16, 8, 4, 2, 1}

// Frame is one completed pass of a progressive render.
type Frame struct {
	Width       int // pixels of this pass, padding excluded
	Height      int
	PaddedWidth int // row length of Pix in pixels
	Downscale   int
	Generation  uint64 // increases with every published frame
	Pix         []byte // RGB, see Generator

	// Resolution of the whole render, the target of Upscaled.
	FullWidth  int
	FullHeight int
}

// Image returns the frame as RGBA at its own resolution.
func (f *Frame) Image() *image.RGBA {
	return toRGBA(f.Pix, f.Width, f.PaddedWidth, f.Height)
}

// Upscaled returns the frame stretched to FullWidth x FullHeight. A frame
// without a full resolution is returned as is.
func (f *Frame) Upscaled() *image.RGBA {
	src := f.Image()
	if f.FullWidth < 1 || f.FullHeight < 1 || (f.FullWidth == f.Width && f.FullHeight == f.Height) {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, f.FullWidth, f.FullHeight))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Progressive renders the same parameters at decreasing downscale factors
// and keeps the last complete pass readable while the next one computes.
type Progressive struct {
	width      int
	height     int
	downscales []int

	latest     atomic.Pointer[Frame]
	current    atomic.Pointer[Generator]
	canceled   atomic.Bool
	pass       atomic.Int32
	generation atomic.Uint64

	mu sync.Mutex // serializes renders
}

// NewProgressive prepares a progressive render of width x height. Downscale
// factors below 1 are dropped, the rest deduplicated and ordered coarse to
// fine. Without factors DefaultDownscales is used.
func NewProgressive(width, height int, downscales ...int) *Progressive {
	factors := slices.DeleteFunc(slices.Clone(downscales), func(f int) bool { return f < 1 })
	if len(factors) == 0 {
		factors = slices.Clone(DefaultDownscales)
	}
	slices.Sort(factors)
	factors = slices.Compact(factors)
	slices.Reverse(factors)

	return &Progressive{
		width:      max(width, 1),
		height:     max(height, 1),
		downscales: factors,
	}
}

// Width returns the full resolution width.
func (p *Progressive) Width() int { return p.width }

// Height returns the full resolution height.
func (p *Progressive) Height() int { return p.height }

// Downscales returns the factors rendered, coarse first.
func (p *Progressive) Downscales() []int { return slices.Clone(p.downscales) }

// Latest returns the last completed pass, or nil before the first one.
func (p *Progressive) Latest() *Frame {
	return p.latest.Load()
}

// Pass returns the index of the pass being rendered and the number of passes.
func (p *Progressive) Pass() (index, total int) {
	return int(p.pass.Load()), len(p.downscales)
}

// Progress returns the progress of the current pass in percent.
func (p *Progressive) Progress() float64 {
	g := p.current.Load()
	if g == nil {
		return progressDone / 10
	}
	return g.Progress()
}

// Cancel stops the render after the current row of the current pass. The
// interrupted pass is not published.
func (p *Progressive) Cancel() {
	p.canceled.Store(true)
	if g := p.current.Load(); g != nil {
		g.Cancel()
	}
}

// Render runs a progressive render of s with the family it selects.
func (p *Progressive) Render(ctx context.Context, s fractal.Settings, threads int) error {
	switch s.Kind {
	case fractal.KindMandelbrot:
		return RenderProgressive(ctx, p, s.Mandelbrot, threads)
	case fractal.KindJulia:
		return RenderProgressive(ctx, p, s.Julia, threads)
	default:
		return fmt.Errorf("%w: %q", fractal.ErrUnknownKind, s.Kind)
	}
}

// RenderProgressive renders params once per downscale factor, publishing
// each completed pass through Latest. It returns when the finest pass is
// published or the render is canceled; a Cancel returns nil, a canceled
// ctx returns ctx.Err().
func RenderProgressive[P fractal.Params[P]](ctx context.Context, p *Progressive, params P, threads int) error {
	if err := params.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.canceled.Store(false)
	defer p.current.Store(nil)

	log := fractal.Logger()
	for idx, f := range p.downscales {
		if p.canceled.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		g := New(ceilDiv(p.width, f), ceilDiv(p.height, f))
		p.pass.Store(int32(idx))
		p.current.Store(g)

		if err := Compute(ctx, g, params, threads); err != nil {
			return err
		}
		// A Cancel that raced the start of Compute is caught here.
		if g.Canceled() || p.canceled.Load() {
			break
		}

		frame := &Frame{
			Width:       g.RequestedWidth(),
			Height:      g.Height(),
			PaddedWidth: g.Width(),
			Downscale:   f,
			Generation:  p.generation.Add(1),
			Pix:         g.Pixels(),
			FullWidth:   p.width,
			FullHeight:  p.height,
		}
		p.latest.Store(frame)
		log.Debug("progressive pass published", "downscale", f, "generation", frame.Generation)
	}
	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
