package fractal

import "math"

// BytesPerPixel is the size of one RGB pixel in a render buffer.
const BytesPerPixel = 3

// Pixel is one 8-bit RGB triple.
type Pixel [BytesPerPixel]uint8

// HSV converts hue, saturation and value to RGB. Inputs are clamped to
// [0, 1] first. Channels are truncated, not rounded.
func HSV(h, s, v float64) Pixel {
	h, s, v = clamp01(h), clamp01(s), clamp01(v)

	h6 := float64(h * 6) // rounded, so f is exactly 0 on sector boundaries
	i := math.Floor(h6)
	f := h6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}
	return Pixel{uint8(r * 255), uint8(g * 255), uint8(b * 255)}
}

// clamp01 restricts x to [0, 1]. NaN clamps to 0 so a degenerate logarithm
// near the escape radius shows up as black rather than an undefined channel.
func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
