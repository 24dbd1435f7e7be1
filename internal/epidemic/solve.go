package epidemic

import (
	"context"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/integrators"
)

const (
	DefaultResolution = 10.0
	DefaultMaxStrains = 10
)

type Options struct {
	// Resolution is the number of reported samples per unit time.
	Resolution float64
	Layout     Layout
	// RawTransmission uses each strain's β as given. By default β is divided
	// by the initial susceptible count so that a strain built from R0
	// reproduces that R0 at the start of the outbreak.
	RawTransmission bool
	// MaxStrains caps the strain count; the full layout needs 2^n classes.
	MaxStrains int
	Solver     integrators.SolveOptions
	Observers  []dynamo.Observer
	Logger     log.Logger
}

func DefaultOptions() Options {
	return Options{
		Resolution: DefaultResolution,
		Layout:     LayoutFull,
		MaxStrains: DefaultMaxStrains,
		Solver:     integrators.DefaultSolveOptions(),
		Logger:     log.NewNopLogger(),
	}
}

// Run is the outcome of one Solve call. It is owned by the caller.
type Run struct {
	Space      *Space
	Strains    []Strain
	Population Population
	Duration   float64
	Resolution float64
	Trajectory *dynamo.Trajectory
}

// Infected returns the total number infected with strain i at every sample.
func (r *Run) Infected(i int) ([]float64, error) {
	if r == nil || r.Space == nil || r.Trajectory.Len() == 0 {
		return nil, &dynamo.PreconditionError{Op: "infected"}
	}
	if i < 0 || i >= r.Space.Strains() {
		return nil, &dynamo.NotFoundError{Key: "strain " + strconv.Itoa(i)}
	}
	slots := r.Space.byStrain[i]
	out := make([]float64, r.Trajectory.Len())
	for k, x := range r.Trajectory.States {
		for _, slot := range slots {
			out[k] += x[slot]
		}
	}
	return out, nil
}

// Prepare validates the inputs and builds the model and initial state
// without integrating.
func Prepare(pop Population, strains []Strain, opts Options) (*Model, dynamo.State, error) {
	if len(strains) == 0 {
		return nil, nil, dynamo.Configf("strains", "at least one strain is required")
	}
	maxStrains := opts.MaxStrains
	if maxStrains <= 0 {
		maxStrains = DefaultMaxStrains
	}
	if len(strains) > maxStrains {
		return nil, nil, dynamo.Configf("strains", "%d strains exceed the configured maximum of %d", len(strains), maxStrains)
	}
	if pop.Birth() == nil {
		return nil, nil, dynamo.Configf("population", "population was not built with NewPopulation")
	}
	for _, s := range strains {
		if err := s.validate(); err != nil {
			return nil, nil, err
		}
	}

	space, err := NewSpace(len(strains), opts.Layout)
	if err != nil {
		return nil, nil, err
	}

	infected := 0.0
	for _, s := range strains {
		infected += s.Infected()
	}
	susceptible := pop.Size() - infected - pop.Immune()
	if susceptible < 0 {
		return nil, nil, dynamo.Configf("population", "initial infected (%g) and immune (%g) exceed size %g", infected, pop.Immune(), pop.Size())
	}

	scale := 1.0
	if !opts.RawTransmission {
		if susceptible == 0 {
			return nil, nil, dynamo.Configf("population", "no initial susceptibles to scale transmission by")
		}
		scale = susceptible
	}

	model, err := NewModel(space, NewRates(pop, strains, scale), pop.Birth())
	if err != nil {
		return nil, nil, err
	}

	y0 := make(dynamo.State, space.Len())
	y0[model.naive] = susceptible
	for i, s := range strains {
		slot, err := space.StateIndex(InfectionState{Class: 0, Strain: i})
		if err != nil {
			return nil, nil, err
		}
		y0[slot] = s.Infected()
	}
	immune, err := space.ClassIndex(space.Immune())
	if err != nil {
		return nil, nil, err
	}
	y0[immune] += pop.Immune()

	return model, y0, nil
}

// Solve integrates the model over [0, duration] and samples it
// duration·Resolution times. It blocks until the trajectory is complete or
// the integrator fails; failures are returned, never retried.
func Solve(ctx context.Context, pop Population, strains []Strain, duration float64, opts Options) (*Run, error) {
	if opts.Resolution == 0 {
		opts.Resolution = DefaultResolution
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	model, y0, err := Prepare(pop, strains, opts)
	if err != nil {
		return nil, err
	}
	grid, err := integrators.Grid(duration, opts.Resolution)
	if err != nil {
		return nil, err
	}

	solverOpts := opts.Solver
	solverOpts.Observers = append(append([]dynamo.Observer(nil), solverOpts.Observers...), opts.Observers...)

	space := model.Space()
	level.Debug(logger).Log("msg", "solving", "strains", len(strains), "layout", space.Layout(),
		"compartments", space.Len(), "samples", len(grid), "duration", duration)

	start := time.Now()
	tr, err := integrators.Solve(ctx, model, y0, [2]float64{0, duration}, grid, solverOpts)
	if err != nil {
		level.Error(logger).Log("msg", "integration failed", "err", err)
		return nil, err
	}
	tr.Labels = space.Labels()

	level.Debug(logger).Log("msg", "solved", "elapsed", time.Since(start),
		"evaluations", tr.Stats.Evaluations, "steps", tr.Stats.Steps, "rejected", tr.Stats.Rejected)

	return &Run{
		Space:      space,
		Strains:    append([]Strain(nil), strains...),
		Population: pop,
		Duration:   duration,
		Resolution: opts.Resolution,
		Trajectory: tr,
	}, nil
}
