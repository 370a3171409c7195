package fractal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHSV(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v float64
		want    Pixel
	}{
		{"white", 0, 0, 1, Pixel{255, 255, 255}},
		{"black", 0.3, 1, 0, Pixel{0, 0, 0}},
		{"red", 0, 1, 1, Pixel{255, 0, 0}},
		{"green", 1.0 / 3, 1, 1, Pixel{0, 255, 0}},
		{"blue", 2.0 / 3, 1, 1, Pixel{0, 0, 255}},
		{"yellow sector 1 start", 1.0 / 6, 1, 1, Pixel{255, 255, 0}},
		{"magenta sector 5", 5.0 / 6, 1, 1, Pixel{255, 0, 255}},
		{"hue 1 wraps to red", 1, 1, 1, Pixel{255, 0, 0}},
		{"gray", 0.5, 0, 0.5, Pixel{127, 127, 127}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HSV(tt.h, tt.s, tt.v))
		})
	}
}

func TestHSVClampsInputs(t *testing.T) {
	assert.Equal(t, HSV(0, 0, 1), HSV(-3, -1, 7))
	assert.Equal(t, Pixel{0, 0, 0}, HSV(math.NaN(), math.NaN(), math.NaN()))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(math.NaN()))
	assert.Equal(t, 0.0, clamp01(math.Inf(-1)))
	assert.Equal(t, 1.0, clamp01(math.Inf(1)))
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.25, clamp01(0.25))
}
