package epidemic

import (
	"math"

	"github.com/san-kum/epistrains/internal/dynamo"
)

// Strain is an immutable description of one circulating variant.
type Strain struct {
	nu       float64
	alpha    float64
	beta     float64
	infected float64
	delay    float64
}

// NewStrain builds a strain from its rates: recovery rate nu, strain-induced
// death rate alpha and unscaled transmission rate beta.
func NewStrain(nu, alpha, beta, infected float64) (Strain, error) {
	s := Strain{nu: nu, alpha: alpha, beta: beta, infected: infected}
	if err := s.validate(); err != nil {
		return Strain{}, err
	}
	return s, nil
}

// FromClinical builds a strain from clinical quantities: mean recovery
// time, case fatality rate and basic reproduction number.
func FromClinical(recoveryTime, cfr, r0, infected float64) (Strain, error) {
	if !(recoveryTime > 0) || math.IsInf(recoveryTime, 0) {
		return Strain{}, dynamo.Configf("recovery_time", "must be positive and finite, got %g", recoveryTime)
	}
	if !(cfr >= 0 && cfr <= 1) {
		return Strain{}, dynamo.Configf("cfr", "must be within [0, 1], got %g", cfr)
	}
	if !(r0 >= 0) || math.IsInf(r0, 0) {
		return Strain{}, dynamo.Configf("r0", "must be non-negative and finite, got %g", r0)
	}
	nu := 1 / recoveryTime
	alpha := cfr * nu
	return NewStrain(nu, alpha, r0*(alpha+nu), infected)
}

// WithDelay returns a copy whose deaths are recorded d time units after the
// infection level that caused them.
func (s Strain) WithDelay(d float64) (Strain, error) {
	if !(d >= 0) || math.IsInf(d, 0) {
		return Strain{}, dynamo.Configf("delay", "must be non-negative and finite, got %g", d)
	}
	s.delay = d
	return s, nil
}

func (s Strain) validate() error {
	switch {
	case !(s.nu > 0) || math.IsInf(s.nu, 0):
		return dynamo.Configf("recovery_rate", "must be positive and finite, got %g", s.nu)
	case !(s.alpha >= 0) || math.IsInf(s.alpha, 0):
		return dynamo.Configf("death_rate", "must be non-negative and finite, got %g", s.alpha)
	case !(s.beta >= 0) || math.IsInf(s.beta, 0):
		return dynamo.Configf("transmission_rate", "must be non-negative and finite, got %g", s.beta)
	case !(s.infected >= 0) || math.IsInf(s.infected, 0):
		return dynamo.Configf("infected", "must be non-negative and finite, got %g", s.infected)
	}
	return nil
}

func (s Strain) RecoveryRate() float64     { return s.nu }
func (s Strain) DeathRate() float64        { return s.alpha }
func (s Strain) TransmissionRate() float64 { return s.beta }
func (s Strain) Infected() float64         { return s.infected }
func (s Strain) DeathDelay() float64       { return s.delay }

// R0 is the basic reproduction number beta/(alpha+nu).
func (s Strain) R0() float64 {
	return s.beta / (s.alpha + s.nu)
}

// RecoveryTime is the mean infectious period 1/nu.
func (s Strain) RecoveryTime() float64 {
	return 1 / s.nu
}
