package epidemic_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/epidemic"
)

type sampleCounter struct{ n int }

func (s *sampleCounter) OnSample(float64, dynamo.State) { s.n++ }

func mustStrain(nu, alpha, beta, infected float64) epidemic.Strain {
	s, err := epidemic.NewStrain(nu, alpha, beta, infected)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func mustPopulation(death, size float64, birth epidemic.BirthRate, opts ...epidemic.PopulationOption) epidemic.Population {
	p, err := epidemic.NewPopulation(death, size, birth, opts...)
	Expect(err).NotTo(HaveOccurred())
	return p
}

func series(run *epidemic.Run, label string) []float64 {
	for slot, l := range run.Space.Labels() {
		if l == label {
			out, err := run.Trajectory.Series(slot)
			Expect(err).NotTo(HaveOccurred())
			return out
		}
	}
	Fail("no compartment labelled " + label)
	return nil
}

var _ = Describe("Solve", func() {
	ctx := context.Background()

	It("fails fast without strains", func() {
		pop := mustPopulation(0.1, 100, epidemic.PerCapitaBirths(0.1))
		counter := &sampleCounter{}
		opts := epidemic.DefaultOptions()
		opts.Observers = []dynamo.Observer{counter}

		_, err := epidemic.Solve(ctx, pop, nil, 1, opts)
		var cfgErr *dynamo.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Field).To(Equal("strains"))
		Expect(counter.n).To(BeZero())
	})

	It("rejects more strains than configured", func() {
		pop := mustPopulation(0.1, 100, epidemic.PerCapitaBirths(0.1))
		strains := []epidemic.Strain{mustStrain(1, 0, 1, 1), mustStrain(1, 0, 1, 1), mustStrain(1, 0, 1, 1)}
		opts := epidemic.DefaultOptions()
		opts.MaxStrains = 2
		_, err := epidemic.Solve(ctx, pop, strains, 1, opts)
		Expect(err).To(MatchError(dynamo.ErrConfiguration))
	})

	It("rejects more initial infections than people", func() {
		pop := mustPopulation(0.1, 10, epidemic.PerCapitaBirths(0.1))
		_, err := epidemic.Solve(ctx, pop, []epidemic.Strain{mustStrain(1, 0, 1, 11)}, 1, epidemic.DefaultOptions())
		Expect(err).To(MatchError(dynamo.ErrConfiguration))
	})

	Context("the single-strain scenario", func() {
		var strain epidemic.Strain

		BeforeEach(func() {
			strain = mustStrain(5.0, 0.5, 3*(0.5+5.0), 10)
			Expect(strain.R0()).To(BeNumerically("~", 3, 1e-12))
		})

		It("starts from the initial split and stays within the living population", func() {
			pop := mustPopulation(0.5, 100, epidemic.ExponentialBirths(2, 0))
			run, err := epidemic.Solve(ctx, pop, []epidemic.Strain{strain}, 1, epidemic.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(run.Space.Len()).To(Equal(3))
			Expect(run.Trajectory.Len()).To(Equal(10))

			s := series(run, "S")
			i := series(run, "I w/ strain 0")
			Expect(s[0]).To(Equal(90.0))
			Expect(i[0]).To(Equal(10.0))

			totals := run.Trajectory.Totals()
			for k := range s {
				Expect(s[k]).To(BeNumerically(">", -1e-6))
				Expect(i[k]).To(BeNumerically(">", -1e-6))
				Expect(s[k]).To(BeNumerically("<=", totals[k]))
				Expect(i[k]).To(BeNumerically("<=", totals[k]))
			}
		})

		It("stays within [0, N0] when births balance background deaths", func() {
			pop := mustPopulation(0.5, 100, epidemic.PerCapitaBirths(0.5))
			run, err := epidemic.Solve(ctx, pop, []epidemic.Strain{strain}, 1, epidemic.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())

			for _, x := range run.Trajectory.States {
				for _, v := range x {
					Expect(v).To(BeNumerically(">", -1e-6))
					Expect(v).To(BeNumerically("<", 100+1e-6))
				}
			}
		})

		It("is the same system in both layouts", func() {
			pop := mustPopulation(0.5, 100, epidemic.PerCapitaBirths(0.5), epidemic.WithWaning(0.2))
			full, err := epidemic.Solve(ctx, pop, []epidemic.Strain{strain}, 2, epidemic.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())

			opts := epidemic.DefaultOptions()
			opts.Layout = epidemic.LayoutCollapsed
			collapsed, err := epidemic.Solve(ctx, pop, []epidemic.Strain{strain}, 2, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(collapsed.Space.Len()).To(Equal(3))

			pairs := map[string]string{"S": "S", "I w/ strain 0": "I_1", "S_{0}": "R"}
			for a, b := range pairs {
				fa, fb := series(full, a), series(collapsed, b)
				for k := range fa {
					Expect(fa[k]).To(BeNumerically("~", fb[k], 1e-7))
				}
			}
		})
	})

	It("conserves the population when births balance deaths and strains are not lethal", func() {
		pop := mustPopulation(0.02, 1000, epidemic.PerCapitaBirths(0.02), epidemic.WithWaning(0.05))
		strains := []epidemic.Strain{mustStrain(0.2, 0, 0.6, 5), mustStrain(0.1, 0, 0.35, 2), mustStrain(0.25, 0, 0.9, 1)}
		run, err := epidemic.Solve(ctx, pop, strains, 30, epidemic.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		for _, total := range run.Trajectory.Totals() {
			Expect(total).To(BeNumerically("~", 1000, 1e-6))
		}
	})

	It("is deterministic", func() {
		pop := mustPopulation(0.00005, 10000, epidemic.ExponentialBirths(1.0, 0.001))
		strains := []epidemic.Strain{mustStrain(0.05, 0, 0.005, 3), mustStrain(0.04, 0.005, 0.007, 8)}
		opts := epidemic.DefaultOptions()
		opts.RawTransmission = true

		a, err := epidemic.Solve(ctx, pop, strains, 1, opts)
		Expect(err).NotTo(HaveOccurred())
		b, err := epidemic.Solve(ctx, pop, strains, 1, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Trajectory.Times).To(Equal(b.Trajectory.Times))
		Expect(a.Trajectory.States).To(Equal(b.Trajectory.States))
	})

	It("gives identical strains identical infection curves", func() {
		pop := mustPopulation(0.01, 500, epidemic.PerCapitaBirths(0.01))
		twin := mustStrain(0.25, 0.01, 0.75, 4)
		run, err := epidemic.Solve(ctx, pop, []epidemic.Strain{twin, twin}, 20, epidemic.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())

		first, err := run.Infected(0)
		Expect(err).NotTo(HaveOccurred())
		second, err := run.Infected(1)
		Expect(err).NotTo(HaveOccurred())
		for k := range first {
			Expect(first[k]).To(BeNumerically("~", second[k], 1e-9*(1+first[k])))
		}
		Expect(series(run, "I w/ strain 0")).To(HaveLen(len(first)))
	})

	It("seeds initially immune individuals in the fully immune class", func() {
		pop := mustPopulation(0, 1000, epidemic.ConstantBirths(0), epidemic.WithImmuneFraction(0.1))
		strains := []epidemic.Strain{mustStrain(0.2, 0, 0.5, 10), mustStrain(0.2, 0, 0.5, 10)}
		run, err := epidemic.Solve(ctx, pop, strains, 1, epidemic.DefaultOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(series(run, "S")[0]).To(Equal(880.0))
		Expect(series(run, "S_{0,1}")[0]).To(Equal(100.0))
	})

	It("forwards integrator failures", func() {
		pop := mustPopulation(0, 100, epidemic.ConstantBirths(0))
		opts := epidemic.DefaultOptions()
		opts.Solver.MaxSteps = 1
		_, err := epidemic.Solve(ctx, pop, []epidemic.Strain{mustStrain(1, 0, 2, 1)}, 50, opts)
		var ie *dynamo.IntegrationError
		Expect(errors.As(err, &ie)).To(BeTrue())
	})

	It("refuses post-processing helpers on a missing run", func() {
		var run *epidemic.Run
		_, err := run.Infected(0)
		Expect(err).To(MatchError(dynamo.ErrPrecondition))

		run = &epidemic.Run{Trajectory: &dynamo.Trajectory{
			Times:  []float64{0},
			States: []dynamo.State{{1, 0, 0}},
		}}
		_, err = run.Infected(0)
		Expect(err).To(MatchError(dynamo.ErrPrecondition))
	})
})
