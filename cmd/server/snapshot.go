package main

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marben/fractal"
	"github.com/marben/fractal/render"
)

// maxSnapshotSide bounds the width and height of a snapshot.
const maxSnapshotSide = 8192

// snapshotRequest is a full resolution render asked for through /render.png.
type snapshotRequest struct {
	Kind          fractal.Kind
	Landmark      string
	Width, Height int
	MaxIterations int
}

// parseSnapshotRequest reads the query of /render.png. Missing values fall
// back to the server config.
func parseSnapshotRequest(q url.Values, c Config) (snapshotRequest, error) {
	req := snapshotRequest{
		Kind:          fractal.KindMandelbrot,
		Landmark:      q.Get("landmark"),
		Width:         c.Width,
		Height:        c.Height,
		MaxIterations: c.MaxIterations,
	}
	if k := q.Get("kind"); k != "" {
		kind, err := fractal.ParseKind(k)
		if err != nil {
			return req, err
		}
		req.Kind = kind
	}

	for name, dst := range map[string]*int{
		"width":          &req.Width,
		"height":         &req.Height,
		"max_iterations": &req.MaxIterations,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	if req.Width < 1 || req.Height < 1 || req.Width > maxSnapshotSide || req.Height > maxSnapshotSide {
		return req, fmt.Errorf("size %dx%d out of range 1..%d", req.Width, req.Height, maxSnapshotSide)
	}
	if err := checkIterations(req.MaxIterations, c.MaxIterationsLimit); err != nil {
		return req, err
	}
	return req, nil
}

// key identifies identical requests.
func (r snapshotRequest) key() string {
	return fmt.Sprintf("%s/%s/%dx%d/%d", r.Kind, r.Landmark, r.Width, r.Height, r.MaxIterations)
}

func (r snapshotRequest) settings() (fractal.Settings, error) {
	s := fractal.DefaultSettings(r.Kind)
	v := s.View()
	if r.Landmark != "" {
		region, err := fractal.Landmark(r.Landmark)
		if err != nil {
			return s, err
		}
		*v = region.View(r.MaxIterations)
	} else if r.MaxIterations != 0 {
		v.MaxIterations = r.MaxIterations
	}
	return s, s.Validate()
}

// snapshotHandler renders the requested view at full resolution and replies
// with a PNG. Identical requests in flight share a single render.
func (s *server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseSnapshotRequest(r.URL.Query(), s.c)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	settings, err := req.settings()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	v, err := s.snapshots.Do(req.key(), func() (any, error) {
		return s.renderPNG(settings, req.Width, req.Height)
	})
	if err != nil {
		log.Printf("snapshot %s: %v", req.key(), err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(v.([]byte)); err != nil {
		log.Printf("snapshot %s: write: %v", req.key(), err)
	}
}

// renderPNG runs a full render. The render is shared between requests, so
// it only stops when the server shuts down.
func (s *server) renderPNG(settings fractal.Settings, width, height int) ([]byte, error) {
	start := time.Now()
	g := render.New(width, height)
	if err := g.Render(s.ctx, settings, s.c.Threads); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	var buf bytes.Buffer
	if err := fractal.WritePNG(&buf, g); err != nil {
		return nil, err
	}
	log.Printf("snapshot %dx%d rendered in %v", width, height, time.Since(start))
	return buf.Bytes(), nil
}
