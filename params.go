package fractal

import (
	"fmt"
	"math"
	"strings"
)

const (
	// PanSensitivity converts a drag distance in pixels to complex-plane units
	// at zoom 0.
	PanSensitivity = 0.0009

	// ZoomSensitivity converts a wheel delta to zoom steps.
	ZoomSensitivity = 0.003
)

// View is the part of the parameters that decides which region of the complex
// plane is iterated and for how long.
type View struct {
	MaxIterations int     `json:"max_iterations"`
	Zoom          float64 `json:"zoom"`     // log2 scale factor
	OffsetX       float64 `json:"offset_x"` // real pan
	OffsetY       float64 `json:"offset_y"` // imaginary pan
}

// Scale returns the width of the rendered region, 2^-Zoom.
func (v View) Scale() float64 {
	return math.Exp2(-v.Zoom)
}

// Pan moves the view by a drag of (dx, dy) pixels. Dragging right moves the
// image right, so the offset moves left.
func (v *View) Pan(dx, dy float64) {
	d := v.Scale() * PanSensitivity
	v.OffsetX -= dx * d
	v.OffsetY -= dy * d
}

// ZoomBy zooms by a wheel delta and rescales MaxIterations so deeper views
// get more iterations.
func (v *View) ZoomBy(delta float64) {
	v.Zoom -= delta * ZoomSensitivity
	v.MaxIterations = max(1, int(math.Exp2(v.Zoom/10)*1000))
}

func (v View) validate() error {
	if v.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be positive, got %d", ErrInvalidParams, v.MaxIterations)
	}
	return checkFinite(
		field{"zoom", v.Zoom},
		field{"offset_x", v.OffsetX},
		field{"offset_y", v.OffsetY},
	)
}

func (v View) differs(old View) bool {
	return v.MaxIterations != old.MaxIterations ||
		v.Zoom != old.Zoom ||
		v.OffsetX != old.OffsetX ||
		v.OffsetY != old.OffsetY
}

// Coloring holds the shading parameters. Changing only these never requires
// a new iteration pass.
type Coloring struct {
	Saturation         float64 `json:"saturation"`
	ColorFrequency     float64 `json:"color_frequency"`
	ColorOffset        float64 `json:"color_offset"`
	GlowSpread         float64 `json:"glow_spread"`
	GlowStrength       float64 `json:"glow_strength"`
	Brightness         float64 `json:"brightness"`
	InternalBrightness float64 `json:"internal_brightness"`
}

// DefaultColoring returns the coloring both families start with.
func DefaultColoring() Coloring {
	return Coloring{
		Saturation:         1.0,
		ColorFrequency:     1.0,
		ColorOffset:        0.0,
		GlowSpread:         1.0,
		GlowStrength:       1.0,
		Brightness:         2.0,
		InternalBrightness: 1.0,
	}
}

func (c Coloring) validate() error {
	return checkFinite(
		field{"saturation", c.Saturation},
		field{"color_frequency", c.ColorFrequency},
		field{"color_offset", c.ColorOffset},
		field{"glow_spread", c.GlowSpread},
		field{"glow_strength", c.GlowStrength},
		field{"brightness", c.Brightness},
		field{"internal_brightness", c.InternalBrightness},
	)
}

// Mandelbrot iterates z = z² + c with z starting at 0 and c taken from the pixel.
type Mandelbrot struct {
	View
	Coloring
}

// DefaultMandelbrot returns the classic full view of the set.
func DefaultMandelbrot() Mandelbrot {
	return Mandelbrot{
		View:     View{MaxIterations: 250, Zoom: -2.0, OffsetX: -0.5, OffsetY: 0},
		Coloring: DefaultColoring(),
	}
}

// Validate rejects parameters no render can be started with.
func (m Mandelbrot) Validate() error {
	if err := m.View.validate(); err != nil {
		return err
	}
	return m.Coloring.validate()
}

func (m Mandelbrot) NeedsRecompute(old Mandelbrot) bool {
	return m.View.differs(old.View)
}

// Julia iterates z = z² + c with z taken from the pixel and c fixed.
type Julia struct {
	View
	ConstantReal float64 `json:"constant_real"`
	ConstantImag float64 `json:"constant_imag"`
	Coloring
}

// DefaultJulia returns a centred view of the Julia set for c = 0.15 - 0.6i.
func DefaultJulia() Julia {
	return Julia{
		View:         View{MaxIterations: 250, Zoom: -2.0},
		ConstantReal: 0.15,
		ConstantImag: -0.6,
		Coloring:     DefaultColoring(),
	}
}

// Validate rejects parameters no render can be started with.
func (j Julia) Validate() error {
	if err := j.View.validate(); err != nil {
		return err
	}
	if err := checkFinite(
		field{"constant_real", j.ConstantReal},
		field{"constant_imag", j.ConstantImag},
	); err != nil {
		return err
	}
	return j.Coloring.validate()
}

func (j Julia) NeedsRecompute(old Julia) bool {
	return j.View.differs(old.View) ||
		j.ConstantReal != old.ConstantReal ||
		j.ConstantImag != old.ConstantImag
}

// Kind names a fractal family.
type Kind string

const (
	KindMandelbrot Kind = "mandelbrot"
	KindJulia      Kind = "julia"
)

// ParseKind accepts a family name case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMandelbrot, KindJulia:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Settings carries the parameters of whichever family Kind selects. The
// parameters of the other family are kept so switching back restores them.
type Settings struct {
	Kind       Kind       `json:"kind"`
	Mandelbrot Mandelbrot `json:"mandelbrot"`
	Julia      Julia      `json:"julia"`
}

// DefaultSettings returns default parameters for both families with kind selected.
func DefaultSettings(kind Kind) Settings {
	return Settings{
		Kind:       kind,
		Mandelbrot: DefaultMandelbrot(),
		Julia:      DefaultJulia(),
	}
}

// View returns the view of the selected family.
func (s *Settings) View() *View {
	if s.Kind == KindJulia {
		return &s.Julia.View
	}
	return &s.Mandelbrot.View
}

// Validate checks the kind and the parameters of the selected family only.
func (s Settings) Validate() error {
	switch s.Kind {
	case KindMandelbrot:
		return s.Mandelbrot.Validate()
	case KindJulia:
		return s.Julia.Validate()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
}

// NeedsRecompute reports whether s requires iterating again after old was
// rendered. Switching family always does.
func (s Settings) NeedsRecompute(old Settings) bool {
	if s.Kind != old.Kind {
		return true
	}
	if s.Kind == KindJulia {
		return s.Julia.NeedsRecompute(old.Julia)
	}
	return s.Mandelbrot.NeedsRecompute(old.Mandelbrot)
}

type field struct {
	name  string
	value float64
}

func checkFinite(fields ...field) error {
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is not finite (%v)", ErrInvalidParams, f.name, f.value)
		}
	}
	return nil
}
