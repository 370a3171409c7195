package fractal

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	m := DefaultMandelbrot()
	assert.Equal(t, 250, m.MaxIterations)
	assert.Equal(t, -2.0, m.Zoom)
	assert.Equal(t, -0.5, m.OffsetX)
	assert.Equal(t, 4.0, m.Scale())
	assert.Equal(t, 2.0, m.Brightness)
	require.NoError(t, m.Validate())

	j := DefaultJulia()
	assert.Equal(t, 0.15, j.ConstantReal)
	assert.Equal(t, -0.6, j.ConstantImag)
	assert.Equal(t, 0.0, j.OffsetX)
	require.NoError(t, j.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Julia)
	}{
		{"zero iterations", func(j *Julia) { j.MaxIterations = 0 }},
		{"negative iterations", func(j *Julia) { j.MaxIterations = -3 }},
		{"nan zoom", func(j *Julia) { j.Zoom = math.NaN() }},
		{"inf offset", func(j *Julia) { j.OffsetY = math.Inf(-1) }},
		{"nan constant", func(j *Julia) { j.ConstantImag = math.NaN() }},
		{"inf brightness", func(j *Julia) { j.Brightness = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := DefaultJulia()
			tt.modify(&j)
			assert.ErrorIs(t, j.Validate(), ErrInvalidParams)
		})
	}

	m := DefaultMandelbrot()
	m.GlowSpread = math.NaN()
	assert.ErrorIs(t, m.Validate(), ErrInvalidParams)
}

func TestNeedsRecompute(t *testing.T) {
	base := DefaultJulia()

	colorOnly := base
	colorOnly.Saturation = 0.2
	colorOnly.ColorFrequency = 3
	colorOnly.ColorOffset = 0.5
	colorOnly.GlowSpread = 2
	colorOnly.GlowStrength = 2
	colorOnly.Brightness = 1
	colorOnly.InternalBrightness = 0.5
	assert.False(t, colorOnly.NeedsRecompute(base))

	for name, modify := range map[string]func(*Julia){
		"max_iterations": func(j *Julia) { j.MaxIterations++ },
		"zoom":           func(j *Julia) { j.Zoom += 0.1 },
		"offset_x":       func(j *Julia) { j.OffsetX += 0.1 },
		"offset_y":       func(j *Julia) { j.OffsetY += 0.1 },
		"constant_real":  func(j *Julia) { j.ConstantReal += 0.1 },
		"constant_imag":  func(j *Julia) { j.ConstantImag += 0.1 },
	} {
		j := base
		modify(&j)
		assert.True(t, j.NeedsRecompute(base), name)
	}

	m := DefaultMandelbrot()
	moved := m
	moved.OffsetY = 0.3
	assert.True(t, moved.NeedsRecompute(m))
	recolored := m
	recolored.Brightness = 9
	assert.False(t, recolored.NeedsRecompute(m))
}

func TestSettings(t *testing.T) {
	s := DefaultSettings(KindMandelbrot)
	require.NoError(t, s.Validate())

	julia := s
	julia.Kind = KindJulia
	assert.True(t, julia.NeedsRecompute(s))

	recolor := s
	recolor.Mandelbrot.Saturation = 0.1
	recolor.Julia.Zoom = 5 // not selected
	assert.False(t, recolor.NeedsRecompute(s))

	s.View().Pan(100, 0)
	assert.Less(t, s.Mandelbrot.OffsetX, -0.5)
	assert.Equal(t, 0.0, s.Julia.OffsetX)

	bad := Settings{Kind: "sierpinski"}
	assert.ErrorIs(t, bad.Validate(), ErrUnknownKind)
}

func TestSettingsJSON(t *testing.T) {
	s := DefaultSettings(KindJulia)
	b, err := json.Marshal(s)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(b, &generic))
	julia, ok := generic["julia"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 250.0, julia["max_iterations"])
	assert.Equal(t, 0.15, julia["constant_real"])
	assert.Equal(t, 2.0, julia["brightness"])

	var back Settings
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s, back)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Julia ")
	require.NoError(t, err)
	assert.Equal(t, KindJulia, k)

	_, err = ParseKind("burning-ship")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestPanAndZoom(t *testing.T) {
	v := View{MaxIterations: 250, Zoom: 0}
	v.Pan(1000, -1000)
	assert.InDelta(t, -0.9, v.OffsetX, 1e-12)
	assert.InDelta(t, 0.9, v.OffsetY, 1e-12)

	v.ZoomBy(-1000) // zoom in by 3
	assert.InDelta(t, 3.0, v.Zoom, 1e-12)
	assert.Equal(t, int(math.Exp2(0.3)*1000), v.MaxIterations)

	v.ZoomBy(1e6) // far out
	assert.Equal(t, 1, v.MaxIterations)
}
