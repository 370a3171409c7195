package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/coder/websocket"

	"github.com/marben/fractal"
	"github.com/marben/fractal/render"
	"github.com/marben/fractal/wire"
)

// errClosed marks a failed write: the connection is unusable.
var errClosed = errors.New("conn.Write")

// progressInterval is how often a session pushes progress and new frames.
const progressInterval = 250 * time.Millisecond

// previewer is the part of render.Progressive a session drives.
type previewer interface {
	Render(ctx context.Context, s fractal.Settings, threads int) error
	Latest() *render.Frame
	Pass() (index, total int)
	Progress() float64
}

// session drives one progressive render per websocket connection.
// Only the serve goroutine touches the fields below prog.
type session struct {
	conn          *websocket.Conn
	prog          previewer
	threads       int
	maxIterations int

	settings fractal.Settings // of the latest accepted render request
	sentGen  uint64           // generation of the last frame sent

	cancel context.CancelFunc // of the in-flight render, nil when idle
	done   chan struct{}      // closed when the in-flight render returns
	failed bool               // the render behind done returned an error, read after done
	errs   chan error
}

func newSession(conn *websocket.Conn, c Config) *session {
	return &session{
		conn:          conn,
		prog:          render.NewProgressive(c.Width, c.Height, c.Downscales...),
		threads:       c.Threads,
		maxIterations: c.MaxIterationsLimit,
		errs:          make(chan error, 4),
	}
}

// serve renders initial and then handles client requests until ctx is done
// or the connection fails.
func (s *session) serve(ctx context.Context, initial fractal.Settings) error {
	defer s.stop()

	s.settings = initial
	if err := s.begin(ctx); err != nil {
		return err
	}

	reqs := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		readErr <- s.readLoop(ctx, reqs)
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case data := <-reqs:
			if err := s.handle(ctx, data); err != nil {
				if errors.Is(err, errClosed) {
					return err
				}
				if err := s.send(ctx, wire.Errorf("%v", err)); err != nil {
					return err
				}
			}
		case err := <-s.errs:
			if err := s.send(ctx, wire.Errorf("%v", err)); err != nil {
				return err
			}
		case <-ticker.C:
			if err := s.push(ctx); err != nil {
				return err
			}
		}
	}
}

// readLoop forwards text messages to reqs.
func (s *session) readLoop(ctx context.Context, reqs chan<- []byte) error {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		select {
		case reqs <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handle applies one client request.
func (s *session) handle(ctx context.Context, data []byte) error {
	kind, err := wire.Kind(data)
	if err != nil {
		return err
	}

	switch kind {
	case wire.TypeRender:
		settings := s.settings
		req := wire.Request{Settings: &settings}
		if err := wire.Decode(data, &req); err != nil {
			return err
		}
		if err := settings.Validate(); err != nil {
			return err
		}
		if err := checkIterations(settings.View().MaxIterations, s.maxIterations); err != nil {
			return err
		}
		s.settings = settings
		return s.begin(ctx)
	case wire.TypeCancel:
		s.stop()
		return nil
	default:
		return fmt.Errorf("unknown message type %q", kind)
	}
}

// begin starts rendering s.settings and tells the client about it.
func (s *session) begin(ctx context.Context) error {
	s.start(ctx)
	return s.send(ctx, wire.Settings{Type: wire.TypeSettings, Settings: s.settings})
}

// start cancels the in-flight render, waits for it and renders s.settings.
func (s *session) start(ctx context.Context) {
	s.stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done, s.failed = cancel, done, false

	settings := s.settings
	go func() {
		defer close(done)
		start := time.Now()
		err := s.prog.Render(ctx, settings, s.threads)
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			s.failed = true
			select {
			case s.errs <- fmt.Errorf("render: %w", err):
			default:
			}
		default:
			log.Printf("rendered %s in %v", settings.Kind, time.Since(start))
		}
	}()
}

// stop cancels the in-flight render and waits for it.
func (s *session) stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
}

// rendering reports whether a render was started and has not been collected.
// A render that returned on its own is collected here; finished is false
// when it failed.
func (s *session) rendering() (running, finished bool) {
	if s.done == nil {
		return false, false
	}
	select {
	case <-s.done:
		s.cancel()
		s.cancel, s.done = nil, nil
		return false, !s.failed
	default:
		return true, false
	}
}

// push sends a newly published frame and the progress of the current render.
func (s *session) push(ctx context.Context) error {
	running, finished := s.rendering()

	if f := s.prog.Latest(); f != nil && f.Generation != s.sentGen {
		if err := s.sendFrame(ctx, f); err != nil {
			return err
		}
		s.sentGen = f.Generation
	}

	if !running && !finished {
		return nil
	}
	pass, passes := s.prog.Pass()
	percent := s.prog.Progress()
	if finished {
		pass, percent = passes-1, 100
	}
	return s.send(ctx, wire.Progress{Type: wire.TypeProgress, Percent: percent, Pass: pass, Passes: passes})
}

func (s *session) sendFrame(ctx context.Context, f *render.Frame) error {
	header := wire.Frame{
		Type:        wire.TypeFrame,
		Width:       f.Width,
		Height:      f.Height,
		PaddedWidth: f.PaddedWidth,
		Downscale:   f.Downscale,
		Generation:  f.Generation,
		FullWidth:   f.FullWidth,
		FullHeight:  f.FullHeight,
	}
	if err := s.send(ctx, header); err != nil {
		return err
	}
	if err := s.conn.Write(ctx, websocket.MessageBinary, f.Pix); err != nil {
		return fmt.Errorf("%w: %w", errClosed, err)
	}
	return nil
}

func (s *session) send(ctx context.Context, msg any) error {
	b, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if err := s.conn.Write(ctx, websocket.MessageText, b); err != nil {
		return fmt.Errorf("%w: %w", errClosed, err)
	}
	return nil
}
