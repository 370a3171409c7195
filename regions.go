package fractal

import (
	"fmt"
	"math"
	"slices"
)

// Region within the complex plane, given by its corners.
type Region struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

// View returns a view centred on the region whose width spans Xmax-Xmin.
// The vertical extent follows from the image aspect ratio at render time.
func (r Region) View(maxIter int) View {
	return View{
		MaxIterations: maxIter,
		Zoom:          -math.Log2(r.Xmax - r.Xmin),
		OffsetX:       (r.Xmin + r.Xmax) / 2,
		OffsetY:       (r.Ymin + r.Ymax) / 2,
	}
}

// Classic regions / landmarks in the Mandelbrot set
var (
	// Seahorse Valley – dense filaments and repeating “seahorse” curls
	SeahorseValley = Region{
		Xmin: -0.8,
		Xmax: -0.7,
		Ymin: 0.05,
		Ymax: 0.15,
	}

	// Elephant Valley – large bulb with trunk-like tendrils
	ElephantValley = Region{
		Xmin: -1.85,
		Xmax: -1.75,
		Ymin: -0.10,
		Ymax: -0.02,
	}

	// Spiral Minibrot – small Mandelbrot copy with tight spiral arms
	SpiralMinibrot = Region{
		Xmin: -0.7435,
		Xmax: -0.7420,
		Ymin: 0.1310,
		Ymax: 0.1325,
	}

	// Triple Spiral – threefold symmetric spiral structure
	TripleSpiral = Region{
		Xmin: -0.7480,
		Xmax: -0.7450,
		Ymin: 0.0950,
		Ymax: 0.0980,
	}

	// Valley of the Dragon – deep, highly detailed spiral filaments
	ValleyOfTheDragon = Region{
		Xmin: -0.7400,
		Xmax: -0.7350,
		Ymin: 0.1800,
		Ymax: 0.1850,
	}

	// Minibrot in a Mini-Spiral – self-similar Mandelbrot copy inside a spiral arm
	MinibrotInMiniSpiral = Region{
		Xmin: -1.7390,
		Xmax: -1.7375,
		Ymin: -0.0235,
		Ymax: -0.0220,
	}
)

// Landmarks maps preset names to regions.
var Landmarks = map[string]Region{
	"SeahorseValley":       SeahorseValley,
	"ElephantValley":       ElephantValley,
	"SpiralMinibrot":       SpiralMinibrot,
	"TripleSpiral":         TripleSpiral,
	"ValleyOfTheDragon":    ValleyOfTheDragon,
	"MinibrotInMiniSpiral": MinibrotInMiniSpiral,
}

// Landmark looks a region up by name.
func Landmark(name string) (Region, error) {
	r, ok := Landmarks[name]
	if !ok {
		return Region{}, fmt.Errorf("%w: %q", ErrUnknownLandmark, name)
	}
	return r, nil
}

// LandmarkNames returns the preset names in sorted order.
func LandmarkNames() []string {
	names := make([]string, 0, len(Landmarks))
	for name := range Landmarks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
