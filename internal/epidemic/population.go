package epidemic

import (
	"fmt"
	"math"

	"github.com/san-kum/epistrains/internal/dynamo"
)

// BirthRate maps the current total population to a birth rate (individuals
// per unit time). Implementations must be pure.
type BirthRate interface {
	Rate(size float64) float64
}

// BirthRateFunc adapts an ordinary function to BirthRate.
type BirthRateFunc func(size float64) float64

func (f BirthRateFunc) Rate(size float64) float64 { return f(size) }

// ConstantBirths adds a fixed number of individuals per unit time.
type ConstantBirths float64

func (c ConstantBirths) Rate(float64) float64 { return float64(c) }

func (c ConstantBirths) Validate() error {
	if !(c >= 0) || math.IsInf(float64(c), 0) {
		return dynamo.Configf("birth.rate", "must be non-negative and finite, got %g", float64(c))
	}
	return nil
}

func (c ConstantBirths) String() string { return fmt.Sprintf("constant(%g)", float64(c)) }

// PerCapitaBirths is f(N) = a·N.
type PerCapitaBirths float64

func (p PerCapitaBirths) Rate(size float64) float64 { return float64(p) * size }

func (p PerCapitaBirths) Validate() error {
	if !(p >= 0) || math.IsInf(float64(p), 0) {
		return dynamo.Configf("birth.a", "must be non-negative and finite, got %g", float64(p))
	}
	return nil
}

func (p PerCapitaBirths) String() string { return fmt.Sprintf("per_capita(%g)", float64(p)) }

// Exponential is density-dependent growth f(N) = N·a·e^(−k·N), which
// peaks at N = 1/k.
type Exponential struct {
	A float64
	K float64
}

func ExponentialBirths(a, k float64) Exponential {
	return Exponential{A: a, K: k}
}

func (e Exponential) Rate(size float64) float64 {
	return size * e.A * math.Exp(-e.K*size)
}

func (e Exponential) Validate() error {
	if !(e.A >= 0) || math.IsInf(e.A, 0) {
		return dynamo.Configf("birth.a", "must be non-negative and finite, got %g", e.A)
	}
	if !(e.K >= 0) || math.IsInf(e.K, 0) {
		return dynamo.Configf("birth.k", "must be non-negative and finite, got %g", e.K)
	}
	return nil
}

func (e Exponential) String() string { return fmt.Sprintf("exponential(a=%g, k=%g)", e.A, e.K) }

// Population is an immutable description of the host population.
type Population struct {
	size           float64
	deathRate      float64
	birth          BirthRate
	waning         float64
	immuneFraction float64
}

type PopulationOption func(*Population)

// WithWaning sets the rate at which immune individuals become fully
// susceptible again.
func WithWaning(w float64) PopulationOption {
	return func(p *Population) { p.waning = w }
}

// WithImmuneFraction places a share of the initial population in the
// class immune to every strain.
func WithImmuneFraction(f float64) PopulationOption {
	return func(p *Population) { p.immuneFraction = f }
}

func NewPopulation(deathRate, size float64, birth BirthRate, opts ...PopulationOption) (Population, error) {
	p := Population{size: size, deathRate: deathRate, birth: birth}
	for _, opt := range opts {
		opt(&p)
	}

	switch {
	case !(size > 0) || math.IsInf(size, 0):
		return Population{}, dynamo.Configf("size", "must be positive and finite, got %g", size)
	case !(deathRate >= 0) || math.IsInf(deathRate, 0):
		return Population{}, dynamo.Configf("death_rate", "must be non-negative and finite, got %g", deathRate)
	case birth == nil:
		return Population{}, dynamo.Configf("birth", "a birth rate function is required")
	case !(p.waning >= 0) || math.IsInf(p.waning, 0):
		return Population{}, dynamo.Configf("waning_rate", "must be non-negative and finite, got %g", p.waning)
	case !(p.immuneFraction >= 0 && p.immuneFraction <= 1):
		return Population{}, dynamo.Configf("immune_fraction", "must be within [0, 1], got %g", p.immuneFraction)
	}
	if v, ok := birth.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return Population{}, err
		}
	}
	return p, nil
}

func (p Population) Size() float64           { return p.size }
func (p Population) DeathRate() float64      { return p.deathRate }
func (p Population) Birth() BirthRate        { return p.birth }
func (p Population) WaningRate() float64     { return p.waning }
func (p Population) ImmuneFraction() float64 { return p.immuneFraction }

// Immune is the number of individuals initially immune to every strain.
func (p Population) Immune() float64 { return p.size * p.immuneFraction }
