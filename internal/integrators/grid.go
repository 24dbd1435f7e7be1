package integrators

import (
	"math"

	"github.com/san-kum/epistrains/internal/dynamo"
)

// Linspace returns n evenly spaced points from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Grid returns the reporting grid for a run of the given duration at
// resolution samples per unit time: duration*resolution points (at least
// two) spread evenly over [0, duration].
func Grid(duration, resolution float64) ([]float64, error) {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, dynamo.Configf("duration", "must be positive and finite, got %g", duration)
	}
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return nil, dynamo.Configf("resolution", "must be positive and finite, got %g", resolution)
	}
	n := int(math.Round(duration * resolution))
	if n < 2 {
		n = 2
	}
	return Linspace(0, duration, n), nil
}
