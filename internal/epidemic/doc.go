// Package epidemic implements a multi-strain compartmental model.
//
// Individuals are tracked by susceptibility class, the set of strains they
// are currently immune to, and by infection state, a (class, strain) pair
// for someone infected with one strain after holding that class. With n
// strains the full layout has 2^n classes, so both memory and the cost of
// one derivative evaluation grow as O(2^n·n); Options.MaxStrains caps n.
//
// The collapsed layout lumps every recovered individual into a single R
// class immune to all strains, giving the classic S, I_1..I_n, R model.
// Both layouts share one derivative implementation; only the Space
// differs.
//
//	flu, _ := epidemic.FromClinical(5, 0.01, 1.8, 10)
//	pop, _ := epidemic.NewPopulation(0.0001, 10000, epidemic.ExponentialBirths(1, 0.001))
//	run, err := epidemic.Solve(ctx, pop, []epidemic.Strain{flu}, 60, epidemic.DefaultOptions())
package epidemic
