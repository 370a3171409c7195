package render

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marben/fractal"
)

func TestNewPadsWidth(t *testing.T) {
	tests := []struct {
		width, height int
		padded        int
	}{
		{101, 7, 104},
		{100, 3, 100},
		{1, 1, 4},
		{4, 2, 4},
		{0, 0, 4},
	}
	for _, tt := range tests {
		g := New(tt.width, tt.height)
		assert.Equal(t, tt.padded, g.Width())
		assert.Equal(t, max(tt.height, 1), g.Height())
		assert.Len(t, g.Pixels(), tt.padded*max(tt.height, 1)*fractal.BytesPerPixel)
		assert.Equal(t, 100.0, g.Progress(), "idle generator reports done")
		assert.False(t, g.Canceled())
	}
}

func TestComputeDeterministicAcrossThreads(t *testing.T) {
	params := fractal.DefaultMandelbrot()
	params.MaxIterations = 100

	var want []byte
	for _, threads := range []int{1, 2, 4, 16} {
		for range 2 {
			g := New(61, 37)
			require.NoError(t, Compute(context.Background(), g, params, threads))
			assert.Equal(t, 100.0, g.Progress())
			if want == nil {
				want = bytes.Clone(g.Pixels())
				continue
			}
			assert.Equal(t, want, g.Pixels(), "threads %d", threads)
		}
	}
}

func TestComputeJulia(t *testing.T) {
	params := fractal.DefaultJulia()
	params.MaxIterations = 64

	g1 := New(40, 30)
	g2 := New(40, 30)
	require.NoError(t, Compute(context.Background(), g1, params, 3))
	require.NoError(t, g2.Render(context.Background(), fractal.Settings{Kind: fractal.KindJulia, Julia: params}, 5))
	assert.Equal(t, g1.Pixels(), g2.Pixels())
	assert.NotEqual(t, make([]byte, len(g1.Pixels())), g1.Pixels())
}

func TestComputeWritesEveryBatch(t *testing.T) {
	// the kernel is called with every batch column of every row, including padding
	g := New(9, 4)
	require.NoError(t, Compute(context.Background(), g, fractal.DefaultMandelbrot(), 3))

	m := fractal.DefaultMandelbrot()
	for j := range g.Height() {
		for i := 0; i < g.Width(); i += fractal.LaneWidth {
			px := m.Shade(m.Iterate(g.Width(), g.Height(), i, j))
			off := (j*g.Width() + i) * fractal.BytesPerPixel
			for k, p := range px {
				assert.Equal(t, p[:], g.Pixels()[off+k*3:off+k*3+3], "row %d col %d", j, i+k)
			}
		}
	}
}

func TestComputeRejectsInvalidParams(t *testing.T) {
	g := New(8, 8)
	params := fractal.DefaultMandelbrot()
	params.MaxIterations = 0
	err := Compute(context.Background(), g, params, 2)
	assert.ErrorIs(t, err, fractal.ErrInvalidParams)
	assert.Equal(t, make([]byte, len(g.Pixels())), g.Pixels(), "nothing rendered")

	err = g.Render(context.Background(), fractal.Settings{Kind: "newton"}, 2)
	assert.ErrorIs(t, err, fractal.ErrUnknownKind)
}

func TestCancelStopsRender(t *testing.T) {
	params := fractal.DefaultMandelbrot()
	params.Zoom = 0
	params.MaxIterations = 1 << 20 // most of the view is interior: very slow rows

	g := New(256, 256)
	done := make(chan error, 1)
	go func() {
		done <- Compute(context.Background(), g, params, 2)
	}()

	require.Eventually(t, g.running, 5*time.Second, time.Millisecond)
	g.Cancel()

	select {
	case err := <-done:
		require.NoError(t, err, "cancel is not an error")
	case <-time.After(60 * time.Second):
		t.Fatal("Compute did not return after Cancel")
	}
	assert.True(t, g.Canceled())
	assert.Equal(t, 100.0, g.Progress())

	// the interior centre rows were never reached
	mid := g.Height() / 2 * g.Width() * fractal.BytesPerPixel
	assert.Equal(t, make([]byte, g.Width()*fractal.BytesPerPixel), g.Pixels()[mid:mid+g.Width()*fractal.BytesPerPixel])
}

func TestContextCancelStopsRender(t *testing.T) {
	params := fractal.DefaultMandelbrot()
	params.Zoom = 0
	params.MaxIterations = 1 << 20

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	g := New(256, 256)
	err := Compute(ctx, g, params, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, g.Canceled())
}

func TestCancelWithoutRenderIsNoop(t *testing.T) {
	g := New(8, 8)
	g.Cancel()
	assert.False(t, g.Canceled())
	require.NoError(t, Compute(context.Background(), g, fractal.DefaultJulia(), 1))
	assert.False(t, g.Canceled())
}

func TestCancelDuringRunIsHonored(t *testing.T) {
	g := New(8, 16)
	err := g.run(context.Background(), 1, func(v rowView) {
		g.Cancel()
		for range v.rows() {
			if g.Canceled() {
				return
			}
		}
	})
	require.NoError(t, err)
	assert.True(t, g.Canceled())

	// the next render starts clean
	require.NoError(t, Compute(context.Background(), g, fractal.DefaultJulia(), 1))
	assert.False(t, g.Canceled())
}

func TestStaleCancelSkipsNextRender(t *testing.T) {
	g := New(8, 16)
	require.NoError(t, Compute(context.Background(), g, fractal.DefaultMandelbrot(), 1))
	first := g.state.Load() >> stateRenderShift

	err := g.run(context.Background(), 1, func(rowView) {
		// a context callback left over from the first render fires late
		g.cancelRender(first)
		assert.False(t, g.Canceled())

		g.cancelRender(first + 1)
		assert.True(t, g.Canceled())
	})
	require.NoError(t, err)
	assert.True(t, g.Canceled())
}

func TestContextCanceledAfterRenderSkipsNextRender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := New(16, 16)
	require.NoError(t, Compute(ctx, g, fractal.DefaultMandelbrot(), 2))
	cancel()

	require.NoError(t, Compute(context.Background(), g, fractal.DefaultMandelbrot(), 2))
	assert.False(t, g.Canceled())
}

func TestProgressDuringRender(t *testing.T) {
	params := fractal.DefaultMandelbrot()
	params.Zoom = 0
	params.MaxIterations = 1 << 16

	g := New(64, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = Compute(context.Background(), g, params, 4)
	}()

	require.Eventually(t, g.running, 5*time.Second, time.Millisecond)
	for g.running() {
		p := g.Progress()
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 100.0)
		time.Sleep(time.Millisecond)
	}
	wg.Wait()
	assert.Equal(t, 100.0, g.Progress())
}

func TestWorkerPanicAbortsRender(t *testing.T) {
	g := New(16, 16)
	boom := errors.New("boom")
	err := g.run(context.Background(), 4, func(v rowView) {
		if v.worker == 2 {
			panic(boom)
		}
		for range v.rows() {
			time.Sleep(time.Millisecond)
			if g.Canceled() {
				return
			}
		}
	})

	var wpe *WorkerPanicError
	require.ErrorAs(t, err, &wpe)
	assert.Equal(t, 2, wpe.Worker)
	assert.NotEmpty(t, wpe.Stack)
	assert.ErrorIs(t, err, boom)
	assert.True(t, g.Canceled(), "remaining workers are told to stop")
	assert.Equal(t, 100.0, g.Progress())
	assert.False(t, g.running())
}

func TestRecolor(t *testing.T) {
	ctx := context.Background()
	params := fractal.DefaultMandelbrot()
	params.MaxIterations = 80

	g := New(33, 21, WithSampleCache())
	assert.ErrorIs(t, Recolor(ctx, g, params, 2), ErrNeedsRecompute, "nothing rendered yet")

	require.NoError(t, Compute(ctx, g, params, 2))

	recolored := params
	recolored.ColorFrequency = 2.5
	recolored.Brightness = 1.2
	require.NoError(t, Recolor(ctx, g, recolored, 3))

	fresh := New(33, 21)
	require.NoError(t, Compute(ctx, fresh, recolored, 1))
	assert.Equal(t, fresh.Pixels(), g.Pixels())

	moved := recolored
	moved.OffsetX = 0.1
	assert.ErrorIs(t, Recolor(ctx, g, moved, 2), ErrNeedsRecompute)
	assert.ErrorIs(t, Recolor(ctx, g, fractal.DefaultJulia(), 2), ErrNeedsRecompute, "different family")

	plain := New(8, 8)
	require.NoError(t, Compute(ctx, plain, params, 1))
	assert.ErrorIs(t, Recolor(ctx, plain, params, 1), ErrNoSampleCache)
}

func TestImageCropsPadding(t *testing.T) {
	g := New(5, 3)
	require.NoError(t, Compute(context.Background(), g, fractal.DefaultMandelbrot(), 2))

	img := g.Image()
	assert.Equal(t, 5, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
	for y := range 3 {
		for x := range 5 {
			off := (y*g.Width() + x) * fractal.BytesPerPixel
			c := img.RGBAAt(x, y)
			assert.Equal(t, []byte{c.R, c.G, c.B}, g.Pixels()[off:off+3])
			assert.Equal(t, uint8(0xff), c.A)
		}
	}
}

func TestThreadsCappedAtHeight(t *testing.T) {
	g := New(8, 3)
	assert.Len(t, g.split(min(64, g.height)), 3)
	require.NoError(t, Compute(context.Background(), g, fractal.DefaultMandelbrot(), 64))
	require.NoError(t, Compute(context.Background(), g, fractal.DefaultMandelbrot(), 0))
}
