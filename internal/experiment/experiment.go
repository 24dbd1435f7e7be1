package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"

	"github.com/san-kum/epistrains/internal/analysis"
	"github.com/san-kum/epistrains/internal/config"
	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/epidemic"
	"github.com/san-kum/epistrains/internal/metrics"
)

// Experiment is a validated scenario ready to solve.
type Experiment struct {
	Name       string
	Population epidemic.Population
	Strains    []epidemic.Strain
	Duration   float64
	Options    epidemic.Options
}

// Result bundles a solved run with its derived series.
type Result struct {
	Name    string
	Run     *epidemic.Run
	Deaths  *analysis.DeathSeries
	Summary *analysis.Summary
	Elapsed time.Duration
}

// Build validates cfg and converts it into domain values.
func (r *Registry) Build(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	birth, err := r.GetBirth(cfg.Population.Birth)
	if err != nil {
		return nil, err
	}
	pop, err := epidemic.NewPopulation(cfg.Population.DeathRate, cfg.Population.Size, birth,
		epidemic.WithWaning(cfg.Population.Waning),
		epidemic.WithImmuneFraction(cfg.Population.ImmuneFraction))
	if err != nil {
		return nil, err
	}

	strains := make([]epidemic.Strain, len(cfg.Strains))
	for i, sc := range cfg.Strains {
		s, err := buildStrain(sc)
		if err != nil {
			return nil, fmt.Errorf("strains[%d]: %w", i, err)
		}
		strains[i] = s
	}

	layout, err := epidemic.ParseLayout(cfg.Layout)
	if err != nil {
		return nil, err
	}
	if !r.HasMethod(cfg.Solver.Method) {
		return nil, dynamo.Configf("solver.method", "unknown method %q", cfg.Solver.Method)
	}

	opts := epidemic.DefaultOptions()
	opts.Resolution = cfg.Resolution
	opts.Layout = layout
	opts.RawTransmission = cfg.RawTransmission
	opts.MaxStrains = cfg.MaxStrains
	opts.Solver.Method = cfg.Solver.Method
	opts.Solver.RelTol = cfg.Solver.RelTol
	opts.Solver.AbsTol = cfg.Solver.AbsTol
	if cfg.Solver.MaxSteps > 0 {
		opts.Solver.MaxSteps = cfg.Solver.MaxSteps
	}
	if cfg.Solver.Substeps > 0 {
		opts.Solver.Substeps = cfg.Solver.Substeps
	}

	return &Experiment{
		Name:       cfg.Name,
		Population: pop,
		Strains:    strains,
		Duration:   cfg.Duration,
		Options:    opts,
	}, nil
}

func buildStrain(sc config.StrainConfig) (epidemic.Strain, error) {
	var (
		s   epidemic.Strain
		err error
	)
	if sc.Clinical() {
		s, err = epidemic.FromClinical(sc.RecoveryTime, sc.CFR, sc.R0, sc.Infected)
	} else {
		s, err = epidemic.NewStrain(sc.Recovery, sc.Death, sc.Transmission, sc.Infected)
	}
	if err != nil {
		return s, err
	}
	return s.WithDelay(sc.DeathDelay)
}

// Run solves the experiment and derives deaths and the summary. rec may be
// nil.
func (e *Experiment) Run(ctx context.Context, logger log.Logger, rec *metrics.Recorder) (*Result, error) {
	opts := e.Options
	if logger != nil {
		opts.Logger = log.With(logger, "scenario", e.Name)
	}

	start := time.Now()
	run, err := epidemic.Solve(ctx, e.Population, e.Strains, e.Duration, opts)
	elapsed := time.Since(start)
	if err != nil {
		rec.Observe(opts.Layout.String(), len(e.Strains), dynamo.Stats{}, elapsed, err)
		return nil, err
	}
	rec.Observe(opts.Layout.String(), len(e.Strains), run.Trajectory.Stats, elapsed, nil)

	deaths, err := analysis.CountDeaths(run)
	if err != nil {
		return nil, err
	}
	summary, err := analysis.Summarize(run)
	if err != nil {
		return nil, err
	}
	return &Result{Name: e.Name, Run: run, Deaths: deaths, Summary: summary, Elapsed: elapsed}, nil
}
