package render

import (
	"fmt"
	"iter"

	"github.com/marben/fractal"
)

// Rows yields the rows worker owns when height rows are interleaved across
// threads workers: worker, worker+threads, worker+2*threads, ...
// Interleaving spreads expensive regions of the image over all workers.
func Rows(height, threads, worker int) iter.Seq[int] {
	return func(yield func(int) bool) {
		if threads <= 0 || worker < 0 || worker >= threads {
			return
		}
		for j := worker; j < height; j += threads {
			if !yield(j) {
				return
			}
		}
	}
}

// rowView is one worker's exclusive window onto the shared buffers.
// Every row it hands out is checked against the interleaving and capped to
// its own length, so a worker cannot address bytes of a row it does not own.
type rowView struct {
	worker  int
	threads int
	height  int
	batches int // LaneWidth batches per row

	pix     []byte
	samples []fractal.Sample
}

// split builds the views for threads workers over g's buffers.
func (g *Generator) split(threads int) []rowView {
	views := make([]rowView, threads)
	for k := range views {
		views[k] = rowView{
			worker:  k,
			threads: threads,
			height:  g.height,
			batches: g.width / fractal.LaneWidth,
			pix:     g.pixels,
			samples: g.samples,
		}
	}
	return views
}

func (v rowView) rows() iter.Seq[int] {
	return Rows(v.height, v.threads, v.worker)
}

func (v rowView) owns(j int) bool {
	return j >= 0 && j < v.height && j%v.threads == v.worker
}

// row returns the pixel bytes of row j.
func (v rowView) row(j int) []byte {
	if !v.owns(j) {
		panic(fmt.Sprintf("render: worker %d/%d does not own row %d", v.worker, v.threads, j))
	}
	n := v.batches * fractal.LaneWidth * fractal.BytesPerPixel
	off := j * n
	return v.pix[off : off+n : off+n]
}

// sampleRow returns the cached samples of row j, or nil without a cache.
func (v rowView) sampleRow(j int) []fractal.Sample {
	if v.samples == nil {
		return nil
	}
	if !v.owns(j) {
		panic(fmt.Sprintf("render: worker %d/%d does not own row %d", v.worker, v.threads, j))
	}
	off := j * v.batches
	return v.samples[off : off+v.batches : off+v.batches]
}

// writeBatch stores one shaded batch at the start of dst.
func writeBatch(dst []byte, px [fractal.LaneWidth]fractal.Pixel) {
	_ = dst[fractal.LaneWidth*fractal.BytesPerPixel-1]
	for k, p := range px {
		copy(dst[k*fractal.BytesPerPixel:], p[:])
	}
}
