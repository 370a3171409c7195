// Package wire defines the messages exchanged over the live preview websocket.
//
// Control messages are JSON text messages carrying a "type" field. A Frame
// message is always followed by one binary message holding the frame pixels:
// PaddedWidth*Height RGB triplets, row major.
package wire

import (
	"fmt"
	"image"

	"github.com/bytedance/sonic"

	"github.com/marben/fractal"
	"github.com/marben/fractal/render"
)

// Message types.
const (
	TypeRender   = "render"
	TypeCancel   = "cancel"
	TypeSettings = "settings"
	TypeProgress = "progress"
	TypeFrame    = "frame"
	TypeError    = "error"
)

// Request is sent by the client. Settings of a render request are applied on
// top of the settings of the previous render, so a client may send only the
// fields it changes.
type Request struct {
	Type     string            `json:"type"`
	Settings *fractal.Settings `json:"settings,omitempty"`
}

// Settings tells the client what the server started rendering.
type Settings struct {
	Type     string           `json:"type"`
	Settings fractal.Settings `json:"settings"`
}

// Progress reports the pass being rendered.
type Progress struct {
	Type    string  `json:"type"`
	Percent float64 `json:"percent"`
	Pass    int     `json:"pass"`
	Passes  int     `json:"passes"`
}

// Frame announces the binary message that follows.
type Frame struct {
	Type        string `json:"type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	PaddedWidth int    `json:"padded_width"`
	Downscale   int    `json:"downscale"`
	Generation  uint64 `json:"generation"`

	// Resolution the frame stands for once upscaled.
	FullWidth  int `json:"full_width"`
	FullHeight int `json:"full_height"`
}

// Render pairs f with the binary message that followed it.
func (f Frame) Render(pix []byte) (*render.Frame, error) {
	if f.Width < 1 || f.Height < 1 || f.Width > f.PaddedWidth {
		return nil, fmt.Errorf("bad frame geometry %dx%d, padded width %d", f.Width, f.Height, f.PaddedWidth)
	}
	if want := f.PaddedWidth * f.Height * fractal.BytesPerPixel; len(pix) != want {
		return nil, fmt.Errorf("frame has %d bytes, want %d", len(pix), want)
	}
	return &render.Frame{
		Width:       f.Width,
		Height:      f.Height,
		PaddedWidth: f.PaddedWidth,
		Downscale:   f.Downscale,
		Generation:  f.Generation,
		Pix:         pix,
		FullWidth:   f.FullWidth,
		FullHeight:  f.FullHeight,
	}, nil
}

// Image converts the binary message that followed f to RGBA, padding cropped.
func (f Frame) Image(pix []byte) (*image.RGBA, error) {
	rf, err := f.Render(pix)
	if err != nil {
		return nil, err
	}
	return rf.Image(), nil
}

// Error reports a failed request or render.
type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Envelope is decoded first to learn the type of an incoming message.
type Envelope struct {
	Type string `json:"type"`
}

// Encode marshals a message.
func Encode(v any) ([]byte, error) {
	b, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("sonic.Marshal: %w", err)
	}
	return b, nil
}

// Decode unmarshals a message into v.
func Decode(data []byte, v any) error {
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("sonic.Unmarshal: %w", err)
	}
	return nil
}

// Kind returns the type of an encoded message.
func Kind(data []byte) (string, error) {
	var e Envelope
	if err := Decode(data, &e); err != nil {
		return "", err
	}
	return e.Type, nil
}

// Errorf builds an Error message.
func Errorf(format string, args ...any) Error {
	return Error{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}
