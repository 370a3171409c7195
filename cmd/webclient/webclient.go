//go:build js && wasm

// webclient.go is a WASM web client for the live fractal preview.
// It connects to the server, draws every frame the server streams back and turns mouse input into new render requests.

package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"syscall/js"

	"github.com/coder/websocket"

	"github.com/marben/fractal"
	"github.com/marben/fractal/wire"
)

// readLimit bounds one websocket message; frames are a few MB at most.
const readLimit = 64 << 20

// main is the entry point for the WASM web client.
// Note: All rendering is performed by the server; the browser only draws the frames.
func main() {
	logScreenf("Starting WASM web client...")

	// Determine server address for WebSocket connection
	loc := js.Global().Get("window").Get("location")
	host := loc.Get("host").String()
	proto := "ws"
	if loc.Get("protocol").String() == "https:" {
		proto = "wss"
	}
	websocketUrl := proto + "://" + host + "/ws"

	ctx := context.Background()
	logScreenf("Connecting to fractal server at %s...", websocketUrl)
	conn, _, err := websocket.Dial(ctx, websocketUrl, nil)
	if err != nil {
		logFatalf("Failed to connect: %v", err)
	}
	conn.SetReadLimit(readLimit)
	logScreenf("WebSocket connected.")

	c := &client{conn: conn, nav: make(chan navigation, 64)}
	go c.navigateLoop(ctx)
	bindNavigation(c.nav)

	if err := c.readLoop(ctx); err != nil {
		logFatalf("readLoop: %v", err)
	}
}

// client tracks what the server renders so navigation can be applied to it.
type client struct {
	conn *websocket.Conn
	nav  chan navigation

	mu       sync.Mutex
	settings *fractal.Settings // nil until the server announced a render
}

// readLoop receives server messages and updates the canvas and the HUD.
func (c *client) readLoop(ctx context.Context) error {
	var pending *wire.Frame // header waiting for its pixels
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("conn.Read: %w", err)
		}

		if typ == websocket.MessageBinary {
			if pending == nil {
				logScreenf("Unexpected binary message of %d bytes", len(data))
				continue
			}
			img, err := pending.Image(data)
			if err != nil {
				logScreenf("Bad frame: %v", err)
			} else {
				displayImage(img, pending.FullWidth, pending.FullHeight)
				hudSetDownscale(pending.Downscale)
			}
			pending = nil
			continue
		}

		kind, err := wire.Kind(data)
		if err != nil {
			return err
		}
		switch kind {
		case wire.TypeSettings:
			var m wire.Settings
			if err := wire.Decode(data, &m); err != nil {
				return err
			}
			c.mu.Lock()
			c.settings = &m.Settings
			c.mu.Unlock()
			hudSetView(m.Settings)
		case wire.TypeFrame:
			var f wire.Frame
			if err := wire.Decode(data, &f); err != nil {
				return err
			}
			pending = &f
		case wire.TypeProgress:
			var p wire.Progress
			if err := wire.Decode(data, &p); err != nil {
				return err
			}
			hudSetProgress(p)
		case wire.TypeError:
			var e wire.Error
			if err := wire.Decode(data, &e); err != nil {
				return err
			}
			logScreenf("Server: %s", e.Error)
		default:
			logScreenf("Unknown message type %q", kind)
		}
	}
}

// send asks the server to render s.
func (c *client) send(ctx context.Context, s fractal.Settings) error {
	b, err := wire.Encode(wire.Request{Type: wire.TypeRender, Settings: &s})
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, b)
}

// logScreenf appends a formatted message to the log element in the DOM,
func logScreenf(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)

	doc := js.Global().Get("document")
	logElem := doc.Call("getElementById", "log")
	logElem.Set("textContent", logElem.Get("textContent").String()+msg+"\n")
}

// logFatalf logs a fatal error to the log window and terminates the program.
func logFatalf(format string, a ...any) {
	logScreenf("FATAL: "+format, a...)
	log.Fatalf(format, a...)
}

func hudSetProgress(p wire.Progress) {
	doc := js.Global().Get("document")
	doc.Call("getElementById", "progress").Set("textContent", fmt.Sprintf("%.1f%%", p.Percent))
	doc.Call("getElementById", "pass").Set("textContent", fmt.Sprintf("%d/%d", p.Pass+1, p.Passes))
}

func hudSetDownscale(d int) {
	js.Global().Get("document").Call("getElementById", "downscale").Set("textContent", d)
}

// hudSetView shows the family, zoom and iteration cap being rendered.
func hudSetView(s fractal.Settings) {
	v := s.View()
	js.Global().Get("document").Call("getElementById", "view").Set("textContent",
		fmt.Sprintf("%s zoom %.2f iterations %d", s.Kind, v.Zoom, v.MaxIterations))
}
