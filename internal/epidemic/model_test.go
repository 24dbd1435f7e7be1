package epidemic_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/epidemic"
	"gonum.org/v1/gonum/floats"
)

var _ = Describe("Model", func() {
	Describe("Derive", func() {
		var model *epidemic.Model

		BeforeEach(func() {
			space, err := epidemic.NewSpace(2, epidemic.LayoutFull)
			Expect(err).NotTo(HaveOccurred())
			rates := epidemic.Rates{
				Recovery:     []float64{1, 2},
				Death:        []float64{0.1, 0.2},
				Transmission: []float64{0.01, 0.02},
				Background:   0.05,
				Waning:       0.3,
			}
			model, err = epidemic.NewModel(space, rates, epidemic.ConstantBirths(7))
			Expect(err).NotTo(HaveOccurred())
		})

		It("matches the hand-computed two-strain derivative", func() {
			// S, S_{0}, S_{1}, S_{0,1}, I(∅,0), I(∅,1), I({0},1), I({1},0)
			x := dynamo.State{100, 20, 30, 10, 5, 6, 7, 8}
			want := []float64{-19, -7.2, -2.4, 18.5, 7.25, 12.5, -10.55, -5.3}

			dx := model.Derive(0, x)
			Expect(dx).To(HaveLen(len(want)))
			for i := range want {
				Expect(dx[i]).To(BeNumerically("~", want[i], 1e-12), "slot %d (%s)", i, model.Space().Label(i))
			}
		})

		It("changes the total only through births and deaths", func() {
			rng := rand.New(rand.NewSource(7))
			for trial := 0; trial < 50; trial++ {
				x := make(dynamo.State, model.StateDim())
				for i := range x {
					x[i] = rng.Float64() * 100
				}
				dx := model.Derive(0, x)
				Expect(floats.Sum(dx)).To(BeNumerically("~", model.NetFlow(x), 1e-9))
			}
		})

		It("does not modify its input", func() {
			x := dynamo.State{100, 20, 30, 10, 5, 6, 7, 8}
			before := x.Clone()
			model.Derive(0, x)
			Expect(x).To(Equal(before))
		})

		It("is safe to call concurrently", func() {
			x := dynamo.State{100, 20, 30, 10, 5, 6, 7, 8}
			want := model.Derive(0, x)
			done := make(chan dynamo.State, 8)
			for i := 0; i < 8; i++ {
				go func() { done <- model.Derive(0, x.Clone()) }()
			}
			for i := 0; i < 8; i++ {
				Expect(<-done).To(Equal(want))
			}
		})
	})

	It("rejects rates that do not match the space", func() {
		space, err := epidemic.NewSpace(2, epidemic.LayoutFull)
		Expect(err).NotTo(HaveOccurred())
		_, err = epidemic.NewModel(space, epidemic.Rates{Recovery: []float64{1}}, epidemic.ConstantBirths(0))
		Expect(err).To(MatchError(dynamo.ErrConfiguration))
	})

	It("routes recovery to R and waning back to S in the collapsed layout", func() {
		space, err := epidemic.NewSpace(2, epidemic.LayoutCollapsed)
		Expect(err).NotTo(HaveOccurred())
		rates := epidemic.Rates{
			Recovery:     []float64{1, 2},
			Death:        []float64{0, 0},
			Transmission: []float64{0, 0},
			Waning:       0.5,
		}
		model, err := epidemic.NewModel(space, rates, epidemic.ConstantBirths(0))
		Expect(err).NotTo(HaveOccurred())

		// S, I_1, I_2, R
		dx := model.Derive(0, dynamo.State{10, 3, 4, 6})
		Expect(dx[0]).To(BeNumerically("~", 3, 1e-12))
		Expect(dx[1]).To(BeNumerically("~", -3, 1e-12))
		Expect(dx[2]).To(BeNumerically("~", -8, 1e-12))
		Expect(dx[3]).To(BeNumerically("~", 3+8-3, 1e-12))
	})
})
