// Package render owns the pixel buffers and schedules fractal kernels over
// worker goroutines.
package render

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marben/fractal"
)

// progressDone is the permille value reported by an idle generator.
const progressDone = 1000

// Bits of Generator.state. The bits above them count renders.
const (
	stateCanceled = 1 << iota
	stateRunning
	stateRenderShift = iota
)

// Generator renders fractals into an RGB buffer of Width() * Height() pixels,
// 3 bytes each, row-major, top to bottom. Width() is the requested width
// rounded up to fractal.LaneWidth.
//
// Progress, Cancel, Canceled and Pixels may be called from any goroutine
// while a render is in flight. Renders on one Generator run one at a time.
type Generator struct {
	width          int
	height         int
	requestedWidth int

	pixels  []byte
	samples []fractal.Sample // nil unless WithSampleCache

	progress atomic.Int32
	state    atomic.Uint64 // render count<<stateRenderShift | stateRunning | stateCanceled

	mu   sync.Mutex // serializes renders
	last any        // parameters the samples were iterated with, nil if incomplete
}

var _ fractal.ImgProvider = (*Generator)(nil)

type options struct {
	sampleCache bool
}

// Option configures a Generator.
type Option func(*options)

// WithSampleCache keeps the iteration results of every batch so a change of
// coloring can be applied with Recolor instead of a full render. It costs
// 32 bytes per pixel.
func WithSampleCache() Option {
	return func(o *options) {
		o.sampleCache = true
	}
}

// New allocates a zeroed buffer for a width x height image. Dimensions below
// 1 are raised to 1. A new generator reports 100% progress.
func New(width, height int, opts ...Option) *Generator {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	width = max(width, 1)
	height = max(height, 1)
	padded := PaddedWidth(width)

	g := &Generator{
		width:          padded,
		height:         height,
		requestedWidth: width,
		pixels:         make([]byte, padded*height*fractal.BytesPerPixel),
	}
	if o.sampleCache {
		g.samples = make([]fractal.Sample, padded/fractal.LaneWidth*height)
	}
	g.progress.Store(progressDone)
	return g
}

// PaddedWidth rounds width up to a multiple of fractal.LaneWidth.
func PaddedWidth(width int) int {
	return (width + fractal.LaneWidth - 1) / fractal.LaneWidth * fractal.LaneWidth
}

// Width returns the padded width of the buffer in pixels.
func (g *Generator) Width() int { return g.width }

// Height returns the height of the buffer in pixels.
func (g *Generator) Height() int { return g.height }

// RequestedWidth returns the width New was called with.
func (g *Generator) RequestedWidth() int { return g.requestedWidth }

// Pixels returns the live RGB buffer. During a render it may hold a mix of
// old and new rows.
func (g *Generator) Pixels() []byte { return g.pixels }

// Progress returns the progress of the current render in percent. It is
// advisory: rows finish out of order so the value can move backwards.
func (g *Generator) Progress() float64 {
	return float64(g.progress.Load()) / 10
}

// Cancel asks the running render to stop after the row each worker is on.
// It does not wait; the caller of Compute observes the return.
// Without a render in flight it does nothing.
func (g *Generator) Cancel() {
	g.cancelRender(g.state.Load() >> stateRenderShift)
}

// Canceled reports whether the last render was stopped early.
func (g *Generator) Canceled() bool {
	return g.state.Load()&stateCanceled != 0
}

func (g *Generator) running() bool {
	return g.state.Load()&stateRunning != 0
}

// cancelRender marks render n canceled if it is the one running.
func (g *Generator) cancelRender(n uint64) {
	for {
		s := g.state.Load()
		if s&stateRunning == 0 || s&stateCanceled != 0 || s>>stateRenderShift != n {
			return
		}
		if g.state.CompareAndSwap(s, s|stateCanceled) {
			return
		}
	}
}

// begin marks a new render running and not canceled in one step and
// returns its number. The caller holds g.mu.
func (g *Generator) begin() uint64 {
	n := g.state.Load()>>stateRenderShift + 1
	g.state.Store(n<<stateRenderShift | stateRunning)
	return n
}

// end clears stateRunning and keeps stateCanceled for Canceled.
func (g *Generator) end() {
	for {
		s := g.state.Load()
		if g.state.CompareAndSwap(s, s&^stateRunning) {
			return
		}
	}
}

// Image returns a copy of the buffer as RGBA with the padding cropped.
func (g *Generator) Image() *image.RGBA {
	return toRGBA(g.pixels, g.requestedWidth, g.width, g.height)
}

// Render computes s with the family it selects.
func (g *Generator) Render(ctx context.Context, s fractal.Settings, threads int) error {
	switch s.Kind {
	case fractal.KindMandelbrot:
		return Compute(ctx, g, s.Mandelbrot, threads)
	case fractal.KindJulia:
		return Compute(ctx, g, s.Julia, threads)
	default:
		return fmt.Errorf("%w: %q", fractal.ErrUnknownKind, s.Kind)
	}
}

// Compute renders params into g on threads workers and blocks until they are
// done. threads <= 0 uses GOMAXPROCS.
//
// A Cancel leaves the rows not yet reached untouched and returns nil;
// canceling ctx does the same but returns ctx.Err(). A panicking worker
// aborts the render and is returned as *WorkerPanicError. Progress reads
// 100% once Compute returns.
func Compute[P fractal.Params[P]](ctx context.Context, g *Generator, params P, threads int) error {
	if err := params.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.last = nil
	err := g.run(ctx, threads, func(v rowView) {
		computeRows(g, params, v)
	})
	if err != nil {
		return err
	}
	if g.Canceled() {
		return ctx.Err()
	}
	g.last = params
	return nil
}

// Recolor re-shades the cached samples with params. It needs WithSampleCache
// and a completed Compute whose parameters differ from params only in
// coloring.
func Recolor[P fractal.Params[P]](ctx context.Context, g *Generator, params P, threads int) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if g.samples == nil {
		return ErrNoSampleCache
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	old, ok := g.last.(P)
	if !ok || params.NeedsRecompute(old) {
		return ErrNeedsRecompute
	}
	err := g.run(ctx, threads, func(v rowView) {
		shadeRows(g, params, v)
	})
	if err != nil {
		return err
	}
	if g.Canceled() {
		return ctx.Err()
	}
	g.last = params
	return nil
}

// run fans work out over threads row views and joins them. The caller holds g.mu.
func (g *Generator) run(ctx context.Context, threads int, work func(v rowView)) error {
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	threads = min(threads, g.height)

	g.progress.Store(0)
	n := g.begin()
	defer g.end()
	defer g.progress.Store(progressDone)

	// the callback may still run after stop, n keeps it off later renders
	stop := context.AfterFunc(ctx, func() { g.cancelRender(n) })
	defer stop()

	log := fractal.Logger()
	log.Debug("render started", "width", g.width, "height", g.height, "threads", threads)
	start := time.Now()

	var eg errgroup.Group
	for _, v := range g.split(threads) {
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					g.cancelRender(n)
					err = &WorkerPanicError{Worker: v.worker, Value: r, Stack: debug.Stack()}
					log.Warn("render worker panicked", "worker", v.worker, "panic", r)
				}
			}()
			work(v)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	log.Debug("render finished", "elapsed", time.Since(start), "canceled", g.Canceled())
	return nil
}

// computeRows iterates and shades every row of v.
func computeRows[P fractal.Params[P]](g *Generator, params P, v rowView) {
	for j := range v.rows() {
		row := v.row(j)
		samples := v.sampleRow(j)
		for b := range v.batches {
			i := b * fractal.LaneWidth
			s := params.Iterate(g.width, g.height, i, j)
			if samples != nil {
				samples[b] = s
			}
			writeBatch(row[i*fractal.BytesPerPixel:], params.Shade(s))
		}

		g.progress.Store(int32(j * progressDone / g.height))
		if g.Canceled() {
			return
		}
	}
}

// shadeRows re-shades every row of v from the sample cache.
func shadeRows[P fractal.Params[P]](g *Generator, params P, v rowView) {
	for j := range v.rows() {
		row := v.row(j)
		for b, s := range v.sampleRow(j) {
			writeBatch(row[b*fractal.LaneWidth*fractal.BytesPerPixel:], params.Shade(s))
		}

		g.progress.Store(int32(j * progressDone / g.height))
		if g.Canceled() {
			return
		}
	}
}
