package fractal

import "math"

const (
	// LaneWidth is the number of horizontally adjacent pixels iterated in
	// lockstep. Render buffers pad their width to a multiple of it.
	LaneWidth = 4

	// EscapeRadius2 is the squared radius past which a point has escaped.
	// It is far above 4 so the smoothed iteration count is accurate.
	EscapeRadius2 = 1000.0
)

// Lanes holds one value per pixel of a batch.
type Lanes [LaneWidth]float64

func splat(x float64) Lanes {
	return Lanes{x, x, x, x}
}

// Sample is the iteration result of one batch, everything shading needs.
type Sample struct {
	Step  Lanes // iterations taken before escaping, MaxIterations if never
	R     Lanes // |z| when the lane stopped
	DR    Lanes // |z'| when the lane stopped
	Orbit Lanes // closest approach of |z| to the origin
}

// planeReals maps columns i..i+LaneWidth-1 to the real axis.
func planeReals(width, i int, scale, offset float64) Lanes {
	var re Lanes
	for k := range re {
		re[k] = (float64(i+k)/float64(width)-0.5)*scale + offset
	}
	return re
}

// planeImag maps row j to the imaginary axis, keeping the aspect ratio of
// the image.
func planeImag(width, height, j int, scale, offset float64) float64 {
	return (float64(j)/float64(height)-0.5)*scale*(float64(height)/float64(width)) + offset
}

// Iterate computes the batch of LaneWidth pixels starting at column i, row j.
func (m Mandelbrot) Iterate(width, height, i, j int) Sample {
	scale := m.Scale()
	cRe := planeReals(width, i, scale, m.OffsetX)
	cIm := splat(planeImag(width, height, j, scale, m.OffsetY))
	return iterate(m.MaxIterations, Lanes{}, Lanes{}, cRe, cIm, 1)
}

// Iterate computes the batch of LaneWidth pixels starting at column i, row j.
func (jl Julia) Iterate(width, height, i, j int) Sample {
	scale := jl.Scale()
	zRe := planeReals(width, i, scale, jl.OffsetX)
	zIm := splat(planeImag(width, height, j, scale, jl.OffsetY))
	return iterate(jl.MaxIterations, zRe, zIm, splat(jl.ConstantReal), splat(jl.ConstantImag), 0)
}

// iterate runs z = z² + c and z' = 2·z·z' + dc on all lanes in lockstep.
// A lane stops updating once |z|² reaches EscapeRadius2; the batch runs until
// every lane has stopped or maxIter is reached. dc is 1 for the Mandelbrot
// derivative and 0 for Julia.
func iterate(maxIter int, zRe, zIm, cRe, cIm Lanes, dc float64) Sample {
	var (
		dRe   = splat(1)
		dIm   Lanes
		re2   Lanes
		im2   Lanes
		step  Lanes
		orbit = splat(1)
	)
	for k := range re2 {
		re2[k] = zRe[k] * zRe[k]
		im2[k] = zIm[k] * zIm[k]
	}

	for range maxIter {
		active := 0
		for k := range LaneWidth {
			// NaN compares false, so a lane gone NaN counts as escaped.
			if !(re2[k]+im2[k] < EscapeRadius2) {
				continue
			}
			active++

			// z' = 2·z·z' + dc
			ac := zRe[k]*dRe[k] - zIm[k]*dIm[k]
			bd := zIm[k]*dRe[k] + zRe[k]*dIm[k]
			dRe[k] = ac + ac + dc
			dIm[k] = bd + bd

			// z = (re² - im², 2·re·im) + c
			zIm[k] = (zRe[k]+zRe[k])*zIm[k] + cIm[k]
			zRe[k] = re2[k] - im2[k] + cRe[k]
			re2[k] = zRe[k] * zRe[k]
			im2[k] = zIm[k] * zIm[k]

			step[k]++
			orbit[k] = min(orbit[k], re2[k]+im2[k])
		}
		if active == 0 {
			break
		}
	}

	var s Sample
	for k := range LaneWidth {
		s.Step[k] = step[k]
		s.R[k] = math.Sqrt(re2[k] + im2[k])
		s.DR[k] = math.Sqrt(dRe[k]*dRe[k] + dIm[k]*dIm[k])
		s.Orbit[k] = math.Sqrt(orbit[k])
	}
	return s
}

// Shade colors one batch.
func (m Mandelbrot) Shade(s Sample) [LaneWidth]Pixel {
	return m.Coloring.shade(s, m.Scale(), m.MaxIterations)
}

// Shade colors one batch.
func (jl Julia) Shade(s Sample) [LaneWidth]Pixel {
	return jl.Coloring.shade(s, jl.Scale(), jl.MaxIterations)
}

// shade applies distance-estimated glow and a smoothed iteration hue to
// escaped lanes, and orbit-trap grayscale to the rest.
func (c Coloring) shade(s Sample, scale float64, maxIter int) [LaneWidth]Pixel {
	var out [LaneWidth]Pixel
	for k := range LaneWidth {
		step, r, dr := s.Step[k], s.R[k], s.DR[k]

		if step >= float64(maxIter) {
			out[k] = HSV(0, 0, clamp01(s.Orbit[k]*c.Brightness*c.InternalBrightness*c.InternalBrightness))
			continue
		}

		distEst := 0.5 * math.Log(r) * r / dr
		glow := (-math.Log(distEst/scale) + c.GlowSpread) * c.GlowStrength * 0.1
		smoothed := step + (1 - math.Log(math.Log(r))/math.Ln2)

		out[k] = HSV(
			clamp01(math.Sin(math.Log(smoothed)*c.ColorFrequency-c.ColorOffset*2*math.Pi)*0.5+0.5),
			clamp01(c.Saturation*(1-glow*glow)),
			clamp01(glow*c.Brightness),
		)
	}
	return out
}
