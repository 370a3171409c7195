//go:build js && wasm

package main

import (
	"context"
	"syscall/js"

	"github.com/coder/websocket"

	"github.com/marben/fractal"
	"github.com/marben/fractal/wire"
)

// navigation is one user input, applied to the settings being rendered.
type navigation struct {
	dx, dy float64 // drag in pixels
	zoom   float64 // wheel delta
	kind   fractal.Kind
	cancel bool
}

// bindNavigation forwards canvas input to nav. JS callbacks must not block,
// input is dropped when nav is full.
func bindNavigation(nav chan<- navigation) {
	push := func(n navigation) {
		select {
		case nav <- n:
		default:
		}
	}

	document := js.Global().Get("document")
	canvas := document.Call("getElementById", "myCanvas")

	canvas.Call("addEventListener", "mousemove", js.FuncOf(func(_ js.Value, args []js.Value) any {
		e := args[0]
		if e.Get("buttons").Int()&1 == 0 {
			return nil
		}
		push(navigation{dx: e.Get("movementX").Float(), dy: e.Get("movementY").Float()})
		return nil
	}))

	opts := js.Global().Get("Object").New()
	opts.Set("passive", false)
	canvas.Call("addEventListener", "wheel", js.FuncOf(func(_ js.Value, args []js.Value) any {
		e := args[0]
		e.Call("preventDefault")
		push(navigation{zoom: e.Get("deltaY").Float()})
		return nil
	}), opts)

	document.Call("addEventListener", "keydown", js.FuncOf(func(_ js.Value, args []js.Value) any {
		switch args[0].Get("key").String() {
		case "j":
			push(navigation{kind: fractal.KindJulia})
		case "m":
			push(navigation{kind: fractal.KindMandelbrot})
		case "Escape":
			push(navigation{cancel: true})
		}
		return nil
	}))
}

// navigateLoop turns queued input into render requests. Input that piled up
// while a request was being sent is merged into one request.
func (c *client) navigateLoop(ctx context.Context) {
	var pending *navigation // taken off nav by drain, handled next
	for {
		var n navigation
		if pending != nil {
			n, pending = *pending, nil
		} else {
			var ok bool
			if n, ok = <-c.nav; !ok {
				return
			}
		}

		if n.cancel {
			if err := c.cancel(ctx); err != nil {
				logScreenf("cancel: %v", err)
			}
			continue
		}
		n, pending = drain(c.nav, n)

		c.mu.Lock()
		if c.settings == nil {
			c.mu.Unlock()
			continue
		}
		s := *c.settings
		c.mu.Unlock()

		if n.kind != "" {
			s.Kind = n.kind
		}
		v := s.View()
		v.Pan(n.dx, n.dy)
		if n.zoom != 0 {
			v.ZoomBy(n.zoom)
		}
		if err := c.send(ctx, s); err != nil {
			logScreenf("send: %v", err)
			continue
		}
		// the server echoes s back, keep moving from it meanwhile
		c.mu.Lock()
		c.settings = &s
		c.mu.Unlock()
	}
}

// drain merges the movements queued behind n into n. It stops at a cancel
// or family switch and returns it as next, so input keeps its order.
func drain(nav <-chan navigation, n navigation) (merged navigation, next *navigation) {
	for {
		select {
		case m := <-nav:
			if m.cancel || m.kind != "" {
				return n, &m
			}
			n.dx += m.dx
			n.dy += m.dy
			n.zoom += m.zoom
		default:
			return n, nil
		}
	}
}

func (c *client) cancel(ctx context.Context) error {
	b, err := wire.Encode(wire.Envelope{Type: wire.TypeCancel})
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, b)
}
