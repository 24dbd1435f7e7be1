package analysis

import (
	"fmt"

	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/epidemic"
	"github.com/san-kum/epistrains/internal/metrics"
)

// Summary condenses a run into the headline numbers reported by the CLI and
// the sweep table.
type Summary struct {
	PeakPrevalence float64   `json:"peak_prevalence"`
	PeakTime       float64   `json:"peak_time"`
	StrainPeaks    []float64 `json:"strain_peaks"`
	// FinalSusceptible and FinalImmune are shares of the population alive
	// at the end of the run.
	FinalSusceptible float64 `json:"final_susceptible"`
	FinalImmune      float64 `json:"final_immune"`
	FinalPopulation  float64 `json:"final_population"`
	TotalDeaths      float64 `json:"total_deaths"`
	// WavePeriod is the spacing of recurring prevalence waves, 0 when the
	// run shows a single wave.
	WavePeriod float64 `json:"wave_period"`
}

// Summarize replays the run's samples through the peak and final-size
// metrics and counts deaths.
func Summarize(run *epidemic.Run) (*Summary, error) {
	if run == nil || run.Space == nil || run.Trajectory.Len() == 0 {
		return nil, &dynamo.PreconditionError{Op: "summarize"}
	}
	sp := run.Space
	naive, err := sp.ClassIndex(0)
	if err != nil {
		return nil, err
	}

	prevalence := metrics.NewPeak("peak_prevalence", sp.InfectedSlots())
	susceptible := metrics.NewFinalSize("final_susceptible", []int{naive})
	immune := metrics.NewFinalSize("final_immune", sp.ImmuneSlots())
	sampler := metrics.Sampler{prevalence, susceptible, immune}
	strains := make([]*metrics.Peak, sp.Strains())
	for i := range strains {
		strains[i] = metrics.NewPeak(fmt.Sprintf("peak_strain_%d", i), sp.StrainSlots(i))
		sampler = append(sampler, strains[i])
	}

	tr := run.Trajectory
	infected := sp.InfectedSlots()
	series := make([]float64, tr.Len())
	for k, x := range tr.States {
		sampler.OnSample(tr.Times[k], x)
		for _, slot := range infected {
			series[k] += x[slot]
		}
	}

	deaths, err := CountDeaths(run)
	if err != nil {
		return nil, err
	}

	totals := tr.Totals()
	s := &Summary{
		PeakPrevalence:   prevalence.Value(),
		PeakTime:         prevalence.Time(),
		StrainPeaks:      make([]float64, len(strains)),
		FinalSusceptible: susceptible.Value(),
		FinalImmune:      immune.Value(),
		FinalPopulation:  totals[len(totals)-1],
		TotalDeaths:      deaths.Total(),
		WavePeriod:       DominantPeriod(series, tr.SamplesPerUnitTime()),
	}
	for i, p := range strains {
		s.StrainPeaks[i] = p.Value()
	}
	return s, nil
}
