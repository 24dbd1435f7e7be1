package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Clip returns a copy with every negative entry replaced by zero. The
// integrator may report tiny negative values for near-empty compartments;
// reporting code clips them, the solver never does.
func (s State) Clip() State {
	c := make(State, len(s))
	for i, v := range s {
		if v > 0 {
			c[i] = v
		}
	}
	return c
}

// System is the right-hand side of an ODE system. Derive must not retain
// or modify x and must return a freshly allocated slice.
type System interface {
	Derive(t float64, x State) State
	StateDim() int
}

type Observer interface {
	OnSample(t float64, x State)
}

type Metric interface {
	Name() string
	Observe(t float64, x State)
	Value() float64
	Reset()
}

// Stats reports the work done by an integrator for one run.
type Stats struct {
	Evaluations int `json:"evaluations"`
	Steps       int `json:"steps"`
	Rejected    int `json:"rejected"`
}

// Trajectory is a solution sampled at strictly increasing times. States[k]
// is the state at Times[k].
type Trajectory struct {
	Times  []float64
	States []State
	Labels []string
	Stats  Stats
}

func (tr *Trajectory) Len() int {
	if tr == nil {
		return 0
	}
	return len(tr.Times)
}

// Series returns the values of one compartment slot across all samples.
func (tr *Trajectory) Series(slot int) ([]float64, error) {
	if tr.Len() == 0 {
		return nil, &PreconditionError{Op: "series"}
	}
	if slot < 0 || slot >= len(tr.States[0]) {
		return nil, &NotFoundError{Key: fmt.Sprintf("slot %d", slot)}
	}
	out := make([]float64, len(tr.States))
	for k, x := range tr.States {
		out[k] = x[slot]
	}
	return out, nil
}

// Totals returns the summed population at every sample.
func (tr *Trajectory) Totals() []float64 {
	out := make([]float64, tr.Len())
	for k, x := range tr.States {
		for _, v := range x {
			out[k] += v
		}
	}
	return out
}

// SamplesPerUnitTime is the reporting density used to convert per-sample
// quantities into rates.
func (tr *Trajectory) SamplesPerUnitTime() float64 {
	n := tr.Len()
	if n < 2 {
		return 0
	}
	span := tr.Times[n-1] - tr.Times[0]
	if span <= 0 {
		return 0
	}
	return float64(n) / span
}
