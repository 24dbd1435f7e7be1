package metrics

import (
	"math"

	"github.com/san-kum/epistrains/internal/dynamo"
)

func sum(x dynamo.State, slots []int) float64 {
	total := 0.0
	for _, s := range slots {
		if s >= 0 && s < len(x) {
			total += x[s]
		}
	}
	return total
}

// Peak tracks the largest summed value of a group of compartments, e.g.
// total prevalence across every infection state.
type Peak struct {
	name  string
	slots []int
	peak  float64
	at    float64
	seen  bool
}

func NewPeak(name string, slots []int) *Peak {
	return &Peak{name: name, slots: append([]int(nil), slots...)}
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(t float64, x dynamo.State) {
	v := sum(x, p.slots)
	if !p.seen || v > p.peak {
		p.peak, p.at, p.seen = v, t, true
	}
}

func (p *Peak) Value() float64 { return p.peak }

// Time is the sample time at which the peak was first reached.
func (p *Peak) Time() float64 { return p.at }

func (p *Peak) Reset() {
	p.peak, p.at, p.seen = 0, 0, false
}

// FinalSize reports the share of the living population in a group of
// compartments at the last observed sample.
type FinalSize struct {
	name  string
	slots []int
	share float64
}

func NewFinalSize(name string, slots []int) *FinalSize {
	return &FinalSize{name: name, slots: append([]int(nil), slots...)}
}

func (f *FinalSize) Name() string { return f.name }

func (f *FinalSize) Observe(t float64, x dynamo.State) {
	total := 0.0
	for _, v := range x {
		total += v
	}
	if total <= 0 || math.IsNaN(total) {
		f.share = 0
		return
	}
	f.share = sum(x, f.slots) / total
}

func (f *FinalSize) Value() float64 { return f.share }

func (f *FinalSize) Reset() { f.share = 0 }

// Sampler feeds every sample reported by a solver to a set of metrics.
type Sampler []dynamo.Metric

func (s Sampler) OnSample(t float64, x dynamo.State) {
	for _, m := range s {
		m.Observe(t, x)
	}
}

// Values returns the current value of each metric keyed by name.
func (s Sampler) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s Sampler) Reset() {
	for _, m := range s {
		m.Reset()
	}
}
