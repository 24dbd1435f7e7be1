package experiment

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-kit/log"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/epistrains/internal/metrics"
)

// Ensemble solves independent experiments in parallel. The zero value runs
// GOMAXPROCS experiments at a time without logging or metrics.
type Ensemble struct {
	Workers  int
	Logger   log.Logger
	Recorder *metrics.Recorder
}

func NewEnsemble(workers int, logger log.Logger, rec *metrics.Recorder) *Ensemble {
	e := Ensemble{Workers: workers, Logger: logger, Recorder: rec}
	e = e.withDefaults()
	return &e
}

func (e Ensemble) withDefaults() Ensemble {
	if e.Workers <= 0 {
		e.Workers = runtime.GOMAXPROCS(0)
	}
	if e.Logger == nil {
		e.Logger = log.NewNopLogger()
	}
	return e
}

// Run returns results in the order of exps. The first failure cancels the
// remaining runs and is returned with the experiment's index.
func (e *Ensemble) Run(ctx context.Context, exps []*Experiment) ([]*Result, error) {
	cfg := e.withDefaults()
	results := make([]*Result, len(exps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, exp := range exps {
		g.Go(func() error {
			res, err := exp.Run(gctx, log.With(cfg.Logger, "member", i), cfg.Recorder)
			if err != nil {
				return fmt.Errorf("experiment %d (%s): %w", i, exp.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
