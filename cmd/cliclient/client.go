// cliclient renders a Mandelbrot or Julia set on every CPU and saves it as a PNG file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/marben/fractal"
	"github.com/marben/fractal/render"
)

// progressInterval is how often progress is logged while rendering.
const progressInterval = 250 * time.Millisecond

type options struct {
	kind          string
	landmark      string
	width, height int
	threads       int
	maxIterations int
	out           string
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "cliclient",
		Short:        "Render a Mandelbrot or Julia set to a PNG file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.render(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.kind, "kind", string(fractal.KindMandelbrot), "fractal family: mandelbrot or julia")
	f.StringVar(&o.landmark, "landmark", "", "region to render, one of: "+strings.Join(fractal.LandmarkNames(), ", "))
	f.IntVar(&o.width, "width", 1920, "image width in pixels")
	f.IntVar(&o.height, "height", 1080, "image height in pixels")
	f.IntVar(&o.threads, "threads", 0, "render goroutines, 0 uses every CPU")
	f.IntVar(&o.maxIterations, "max-iterations", 0, "iteration cap, 0 keeps the default of the family or 1000 for a landmark")
	f.StringVarP(&o.out, "out", "o", "mandel.png", "output file")
	return cmd
}

// settings builds the render settings out of the flags.
func (o options) settings() (fractal.Settings, error) {
	kind, err := fractal.ParseKind(o.kind)
	if err != nil {
		return fractal.Settings{}, err
	}
	s := fractal.DefaultSettings(kind)
	v := s.View()

	switch {
	case o.landmark != "":
		r, err := fractal.Landmark(o.landmark)
		if err != nil {
			return fractal.Settings{}, err
		}
		*v = r.View(orDefault(o.maxIterations, 1000))
	case o.maxIterations != 0:
		v.MaxIterations = o.maxIterations
	}
	return s, s.Validate()
}

// orDefault returns v, or def when v is zero.
func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// render computes the image and saves it to o.out. A canceled ctx stops the
// render but the partial image is still written.
func (o options) render(ctx context.Context) error {
	settings, err := o.settings()
	if err != nil {
		return err
	}
	if o.width < 1 || o.height < 1 {
		return fmt.Errorf("invalid size %dx%d", o.width, o.height)
	}

	g := render.New(o.width, o.height)
	log.Printf("rendering %s %dx%d, max iterations %d", settings.Kind, o.width, o.height, settings.View().MaxIterations)

	start := time.Now()
	stop := logProgress(g, progressInterval)
	err = g.Render(ctx, settings, o.threads)
	stop()

	switch {
	case errors.Is(err, context.Canceled):
		log.Printf("interrupted at %.1f%%, saving partial image", g.Progress())
	case err != nil:
		return fmt.Errorf("render: %w", err)
	default:
		log.Printf("rendered in %v", time.Since(start))
	}

	if err := save(o.out, g); err != nil {
		return err
	}
	log.Printf("image saved to %q", o.out)
	return nil
}

// logProgress logs the progress of g until the returned stop is called.
func logProgress(g *render.Generator, every time.Duration) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Go(func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				log.Printf("finished: %.1f%%", g.Progress())
			}
		}
	})
	return func() {
		close(done)
		wg.Wait()
	}
}

func save(filename string, p fractal.ImgProvider) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := fractal.WritePNG(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
