package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/zeromicro/go-zero/core/syncx"

	"github.com/marben/fractal"
)

type server struct {
	ctx     context.Context // canceled on shutdown, ends every session
	c       Config
	initial fractal.Settings

	snapshots syncx.SingleFlight
	sessions  atomic.Int32
}

func newServer(ctx context.Context, c Config) (*server, error) {
	initial, err := c.initialSettings()
	if err != nil {
		return nil, err
	}
	return &server{
		ctx:       ctx,
		c:         c,
		initial:   initial,
		snapshots: syncx.NewSingleFlight(),
	}, nil
}

// routes serves files in the static folder along with the websocket and
// snapshot endpoints.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.websocketHandler)
	mux.HandleFunc("/render.png", s.snapshotHandler)
	mux.Handle("/", http.FileServer(http.Dir(s.c.Static)))
	return mux
}

// websocketHandler handles the http ws endpoint
// every accepted websocket gets its own preview session until either side closes it
func (s *server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: tighten in prod
	})
	if err != nil {
		log.Println(err)
		return
	}
	defer c.CloseNow()

	log.Printf("got connection from: %s, sessions: %d", r.RemoteAddr, s.sessions.Add(1))
	defer func() { log.Printf("sessions: %d", s.sessions.Add(-1)) }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer context.AfterFunc(s.ctx, cancel)()

	err = newSession(c, s.c).serve(ctx, s.initial)
	if err != nil && !closedByPeer(err) {
		log.Printf("session %s: %v", r.RemoteAddr, err)
	}
	c.Close(websocket.StatusNormalClosure, "")
}

func closedByPeer(err error) bool {
	return websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled)
}
