// Package analysis derives secondary series from a solved epidemic run.
//
//   - [CountDeaths]: per-sample and cumulative disease deaths, each strain
//     lagged by its death delay
//   - [Summarize]: peak prevalence, final susceptible and immune shares,
//     total deaths
//
// Nothing here integrates; every function reads a finished [epidemic.Run]
// and fails with a *dynamo.PreconditionError when there is none.
//
//	run, err := epidemic.Solve(ctx, pop, strains, 180, epidemic.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	deaths, err := analysis.CountDeaths(run)
package analysis
