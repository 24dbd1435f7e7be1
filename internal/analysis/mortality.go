package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/epidemic"
)

// DeathSeries holds disease deaths on the run's sample grid.
type DeathSeries struct {
	Times []float64
	// PerSample[k] is the death flux attributed to sample k.
	PerSample []float64
	// Cumulative[k] is the number of deaths up to Times[k].
	Cumulative []float64
	// ByStrain[i] is strain i's contribution to PerSample.
	ByStrain [][]float64
}

// Total is the cumulative death count at the end of the run.
func (d *DeathSeries) Total() float64 {
	if d == nil || len(d.Cumulative) == 0 {
		return 0
	}
	return d.Cumulative[len(d.Cumulative)-1]
}

// CountDeaths converts the infected series of every strain into deaths.
// Deaths at sample k come from the individuals infected lag samples
// earlier, where lag is the strain's death delay on the sample grid and at
// least one sample. Samples before the lag carry no deaths.
func CountDeaths(run *epidemic.Run) (*DeathSeries, error) {
	if run == nil || run.Space == nil || run.Trajectory.Len() == 0 {
		return nil, &dynamo.PreconditionError{Op: "count deaths"}
	}
	tr := run.Trajectory
	perUnit := tr.SamplesPerUnitTime()
	if perUnit <= 0 {
		return nil, &dynamo.PreconditionError{Op: "count deaths"}
	}

	n := tr.Len()
	out := &DeathSeries{
		Times:      append([]float64(nil), tr.Times...),
		PerSample:  make([]float64, n),
		Cumulative: make([]float64, n),
		ByStrain:   make([][]float64, len(run.Strains)),
	}

	for i, s := range run.Strains {
		infected, err := run.Infected(i)
		if err != nil {
			return nil, err
		}
		lag := Lag(s.DeathDelay(), perUnit)
		deaths := make([]float64, n)
		for k := lag; k < n; k++ {
			deaths[k] = s.DeathRate() * infected[k-lag]
		}
		out.ByStrain[i] = deaths
		floats.Add(out.PerSample, deaths)
	}

	floats.CumSum(out.Cumulative, out.PerSample)
	floats.Scale(1/perUnit, out.Cumulative)
	return out, nil
}

// Lag converts a death delay in time units into a whole number of samples,
// never less than one.
func Lag(delay, samplesPerUnitTime float64) int {
	lag := int(math.Round(delay * samplesPerUnitTime))
	if lag < 1 {
		return 1
	}
	return lag
}
