package epidemic

import (
	"github.com/san-kum/epistrains/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// Rates holds the per-strain and per-population rates the derivative
// closes over. Transmission holds the effective β used in the force of
// infection (already scaled, see Options.RawTransmission).
type Rates struct {
	Recovery     []float64
	Death        []float64
	Transmission []float64
	Background   float64
	Waning       float64
}

// NewRates collects the rates of strains and pop. Each β is divided by
// scale, which is the initial susceptible count for frequency-scaled runs
// and 1 otherwise.
func NewRates(pop Population, strains []Strain, scale float64) Rates {
	r := Rates{
		Recovery:     make([]float64, len(strains)),
		Death:        make([]float64, len(strains)),
		Transmission: make([]float64, len(strains)),
		Background:   pop.DeathRate(),
		Waning:       pop.WaningRate(),
	}
	for i, s := range strains {
		r.Recovery[i] = s.RecoveryRate()
		r.Death[i] = s.DeathRate()
		r.Transmission[i] = s.TransmissionRate() / scale
	}
	return r
}

// Model is the right-hand side of the multi-strain system. It is immutable
// and Derive is safe for concurrent use.
type Model struct {
	space *Space
	rates Rates
	birth BirthRate
	naive int
}

func NewModel(space *Space, rates Rates, birth BirthRate) (*Model, error) {
	n := space.Strains()
	if len(rates.Recovery) != n || len(rates.Death) != n || len(rates.Transmission) != n {
		return nil, dynamo.Configf("rates", "expected %d strains of rates, got %d/%d/%d",
			n, len(rates.Recovery), len(rates.Death), len(rates.Transmission))
	}
	if birth == nil {
		return nil, dynamo.Configf("birth", "a birth rate function is required")
	}
	naive, err := space.ClassIndex(0)
	if err != nil {
		return nil, err
	}
	return &Model{space: space, rates: rates, birth: birth, naive: naive}, nil
}

func (m *Model) Space() *Space { return m.space }
func (m *Model) Rates() Rates  { return m.rates }
func (m *Model) StateDim() int { return m.space.Len() }

// Derive computes dx/dt. For a class C with population S_C and force of
// infection F_i = β_i·Σ I_(·,i):
//
//	dS_C/dt   = −S_C·Σ_{i∉C} F_i + Σ ν_j·I_(C',j) recovering into C − b·S_C
//	dI_(C,i)/dt = S_C·F_i − (ν_i + α_i + b)·I_(C,i)
//
// Births f(N) enter the fully susceptible class. Every immune class loses
// w·S_C to waning, all of it returning to the fully susceptible class.
func (m *Model) Derive(t float64, x dynamo.State) dynamo.State {
	sp := m.space
	r := m.rates
	dx := make(dynamo.State, len(x))

	force := make([]float64, sp.n)
	for i, slots := range sp.byStrain {
		infected := 0.0
		for _, slot := range slots {
			infected += x[slot]
		}
		force[i] = r.Transmission[i] * infected
	}

	for k, c := range sp.classes {
		slot := sp.classSlots[k]
		s := x[slot]
		for i, target := range sp.infectTo[k] {
			if target < 0 {
				continue
			}
			flow := s * force[i]
			dx[slot] -= flow
			dx[target] += flow
		}
		dx[slot] -= r.Background * s
		if c != 0 && r.Waning > 0 {
			dx[slot] -= r.Waning * s
			dx[m.naive] += r.Waning * s
		}
	}

	dx[m.naive] += m.birth.Rate(floats.Sum(x))

	for j, st := range sp.states {
		slot := sp.stateSlots[j]
		v := x[slot]
		i := st.Strain
		dx[slot] -= (r.Recovery[i] + r.Death[i] + r.Background) * v
		dx[sp.cleared[j]] += r.Recovery[i] * v
	}

	return dx
}

// NetFlow is the rate of change of the total population implied by the
// model: births minus background and strain-induced deaths.
func (m *Model) NetFlow(x dynamo.State) float64 {
	total := floats.Sum(x)
	flow := m.birth.Rate(total) - m.rates.Background*total
	for i, slots := range m.space.byStrain {
		for _, slot := range slots {
			flow -= m.rates.Death[i] * x[slot]
		}
	}
	return flow
}
