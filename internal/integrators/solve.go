package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/epistrains/internal/dynamo"
)

const (
	MethodRK45 = "rk45"
	MethodRK4  = "rk4"
)

// SolveOptions controls step-size selection. Zero values fall back to
// DefaultSolveOptions.
type SolveOptions struct {
	Method      string
	RelTol      float64
	AbsTol      float64
	InitialStep float64
	MinStep     float64
	MaxStep     float64
	MaxSteps    int
	// Substeps is the number of fixed steps per sample interval for rk4.
	Substeps  int
	Observers []dynamo.Observer
}

func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		Method:   MethodRK45,
		RelTol:   1e-3,
		AbsTol:   1e-6,
		MinStep:  1e-12,
		MaxSteps: 1_000_000,
		Substeps: 10,
	}
}

func (o SolveOptions) withDefaults() SolveOptions {
	d := DefaultSolveOptions()
	if o.Method == "" {
		o.Method = d.Method
	}
	if o.RelTol <= 0 {
		o.RelTol = d.RelTol
	}
	if o.AbsTol <= 0 {
		o.AbsTol = d.AbsTol
	}
	if o.MinStep <= 0 {
		o.MinStep = d.MinStep
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	if o.Substeps <= 0 {
		o.Substeps = d.Substeps
	}
	return o
}

// counter tracks right-hand-side evaluations for one run.
type counter struct {
	dynamo.System
	n int
}

func (c *counter) Derive(t float64, x dynamo.State) dynamo.State {
	c.n++
	return c.System.Derive(t, x)
}

// Solve integrates sys from span[0] with initial state y0 and reports the
// state at every time in samples, which must be strictly increasing and
// lie within span. The solver may take finer internal steps than the
// sample grid but always lands exactly on each sample time. Failures are
// returned as *dynamo.IntegrationError and are never retried.
func Solve(ctx context.Context, sys dynamo.System, y0 dynamo.State, span [2]float64, samples []float64, opts SolveOptions) (*dynamo.Trajectory, error) {
	opts = opts.withDefaults()
	if err := validate(sys, y0, span, samples); err != nil {
		return nil, err
	}

	dyn := &counter{System: sys}
	tr := &dynamo.Trajectory{
		Times:  make([]float64, 0, len(samples)),
		States: make([]dynamo.State, 0, len(samples)),
	}

	var err error
	switch opts.Method {
	case MethodRK45:
		err = solveAdaptive(ctx, dyn, y0, span, samples, opts, tr)
	case MethodRK4:
		err = solveFixed(ctx, dyn, y0, span, samples, opts, tr)
	default:
		return nil, dynamo.Configf("method", "unknown integrator %q", opts.Method)
	}
	tr.Stats.Evaluations = dyn.n
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func validate(sys dynamo.System, y0 dynamo.State, span [2]float64, samples []float64) error {
	if len(y0) != sys.StateDim() {
		return fmt.Errorf("%w: initial state has %d entries, system has %d", dynamo.ErrDimensionMismatch, len(y0), sys.StateDim())
	}
	if !y0.IsValid() {
		return dynamo.ErrInvalidState
	}
	if !(span[1] > span[0]) {
		return dynamo.Configf("span", "end %g must be after start %g", span[1], span[0])
	}
	if len(samples) == 0 {
		return dynamo.Configf("samples", "at least one sample time is required")
	}
	for k, t := range samples {
		if t < span[0] || t > span[1] {
			return dynamo.Configf("samples", "time %g outside span [%g, %g]", t, span[0], span[1])
		}
		if k > 0 && t <= samples[k-1] {
			return dynamo.Configf("samples", "times must be strictly increasing at index %d", k)
		}
	}
	return nil
}

func record(tr *dynamo.Trajectory, t float64, x dynamo.State, observers []dynamo.Observer) {
	tr.Times = append(tr.Times, t)
	tr.States = append(tr.States, x.Clone())
	for _, obs := range observers {
		obs.OnSample(t, x)
	}
}

func canceled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err())
	default:
		return nil
	}
}

func solveAdaptive(ctx context.Context, dyn dynamo.System, y0 dynamo.State, span [2]float64, samples []float64, opts SolveOptions, tr *dynamo.Trajectory) error {
	rk := NewRK45()
	maxStep := opts.MaxStep
	if maxStep <= 0 {
		maxStep = math.Inf(1)
	}
	h := opts.InitialStep
	if h <= 0 {
		h = math.Min((span[1]-span[0])/100, maxStep)
	}

	t := span[0]
	x := y0.Clone()

	for _, target := range samples {
		for t < target {
			if err := canceled(ctx); err != nil {
				return err
			}
			if tr.Stats.Steps+tr.Stats.Rejected >= opts.MaxSteps {
				return &dynamo.IntegrationError{
					Step: tr.Stats.Steps, Time: t,
					Message: fmt.Sprintf("exceeded %d step attempts", opts.MaxSteps),
					Wrapped: dynamo.ErrMaxSteps,
				}
			}

			hTry := math.Min(h, maxStep)
			last := t+hTry >= target-1e-12*math.Max(1, math.Abs(target))
			if last {
				hTry = target - t
			}

			xNew, hNext, errNorm := rk.StepAdaptive(dyn, x, t, hTry, opts.RelTol, opts.AbsTol)
			if errNorm <= 1 {
				if last {
					t = target
				} else {
					t += hTry
				}
				x = xNew
				tr.Stats.Steps++
				if last && hTry < h {
					// A step shortened to hit a sample says little about the
					// next one.
					h = math.Max(hNext, h)
				} else {
					h = hNext
				}
				continue
			}

			tr.Stats.Rejected++
			h = math.Min(hNext, hTry)
			if h < opts.MinStep {
				wrapped := dynamo.ErrStepTooSmall
				if math.IsInf(errNorm, 1) {
					wrapped = dynamo.ErrInvalidState
				}
				return &dynamo.IntegrationError{
					Step: tr.Stats.Steps, Time: t,
					Message: fmt.Sprintf("required step size %.3g is below the minimum %.3g", h, opts.MinStep),
					Wrapped: wrapped,
				}
			}
		}
		record(tr, t, x, opts.Observers)
	}
	return nil
}

func solveFixed(ctx context.Context, dyn dynamo.System, y0 dynamo.State, span [2]float64, samples []float64, opts SolveOptions, tr *dynamo.Trajectory) error {
	rk := NewRK4()
	t := span[0]
	x := y0.Clone()

	for _, target := range samples {
		if target > t {
			if err := canceled(ctx); err != nil {
				return err
			}
			dt := (target - t) / float64(opts.Substeps)
			for i := 0; i < opts.Substeps; i++ {
				x = rk.Step(dyn, x, t+float64(i)*dt, dt)
				tr.Stats.Steps++
			}
			t = target
			if !x.IsValid() {
				return &dynamo.IntegrationError{
					Step: tr.Stats.Steps, Time: t,
					Message: "invalid state (NaN/Inf)",
					Wrapped: dynamo.ErrInvalidState,
				}
			}
		}
		record(tr, t, x, opts.Observers)
	}
	return nil
}
