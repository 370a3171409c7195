package main

import (
	"fmt"

	"github.com/marben/fractal"
)

// Config is loaded from etc/server.yaml.
type Config struct {
	ListenOn string `json:",default=:8080"`
	Static   string `json:",default=./static"` // index.html, wasm_exec.js and main.wasm

	// Live preview resolution and the passes rendered for each request.
	Width      int   `json:",default=1280"`
	Height     int   `json:",default=720"`
	Threads    int   `json:",optional"` // 0 uses every CPU
	Downscales []int `json:",optional"`

	// Landmark picks the view a new session starts with.
	Landmark      string `json:",optional"`
	MaxIterations int    `json:",default=1000"`

	// MaxIterationsLimit caps the max_iterations a client may ask for.
	MaxIterationsLimit int `json:",default=1048576"`

	Gops bool `json:",optional"`
}

// initialSettings returns the settings a new preview session renders first.
func (c Config) initialSettings() (fractal.Settings, error) {
	s := fractal.DefaultSettings(fractal.KindMandelbrot)
	if c.Landmark == "" {
		return s, nil
	}
	r, err := fractal.Landmark(c.Landmark)
	if err != nil {
		return fractal.Settings{}, err
	}
	*s.View() = r.View(c.MaxIterations)
	return s, s.Validate()
}

// checkIterations rejects an iteration cap above limit.
func checkIterations(n, limit int) error {
	if n > limit {
		return fmt.Errorf("%w: max_iterations %d above the server limit %d", fractal.ErrInvalidParams, n, limit)
	}
	return nil
}
