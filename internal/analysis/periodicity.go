package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// minCycles is the fewest full cycles a component needs to count as an
// oscillation rather than the single rise and fall of one wave.
const minCycles = 2

// DominantPeriod returns the period, in time units, of the strongest
// oscillation in values sampled perUnit times per unit time. Waning
// immunity produces recurring waves; a run with a single wave or a flat
// series returns 0.
func DominantPeriod(values []float64, perUnit float64) float64 {
	n := len(values)
	if n < 2*minCycles || perUnit <= 0 {
		return 0
	}

	centered := make([]float64, n)
	copy(centered, values)
	floats.AddConst(-floats.Sum(values)/float64(n), centered)
	if floats.Norm(centered, 2) < 1e-12*(1+floats.Norm(values, 2)) {
		return 0
	}

	spectrum := fft.FFTReal(centered)
	best, power := 0, 0.0
	for k := minCycles; k <= n/2; k++ {
		if p := cmplx.Abs(spectrum[k]); p > power {
			best, power = k, p
		}
	}
	// The single-wave bin dominates: no recurrence.
	if best == 0 || cmplx.Abs(spectrum[1]) > power {
		return 0
	}
	return float64(n) / (float64(best) * perUnit)
}
