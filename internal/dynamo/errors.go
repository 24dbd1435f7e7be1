package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfiguration indicates malformed model inputs detected at construction.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrMaxSteps indicates the integrator exhausted its step budget.
	ErrMaxSteps = errors.New("dynamo: maximum number of steps exceeded")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrPrecondition indicates an operation that needs a solved trajectory.
	ErrPrecondition = errors.New("dynamo: precondition failed")

	// ErrNotFound indicates a compartment lookup outside the enumeration.
	ErrNotFound = errors.New("dynamo: compartment not found")
)

// ConfigurationError describes an input rejected before any computation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("dynamo: invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// Configf builds a ConfigurationError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IntegrationError wraps a solver failure with the step it happened at.
type IntegrationError struct {
	Step    int
	Time    float64
	Message string
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}

// PreconditionError is returned when post-processing is requested without
// a solved trajectory.
type PreconditionError struct {
	Op string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("dynamo: %s requires a solved trajectory", e.Op)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// NotFoundError reports a lookup of a class or infection state that is not
// part of the enumeration. Invariant is set when the key itself is
// structurally impossible rather than merely out of range.
type NotFoundError struct {
	Key       string
	Invariant bool
}

func (e *NotFoundError) Error() string {
	if e.Invariant {
		return fmt.Sprintf("dynamo: %s violates compartment invariants", e.Key)
	}
	return fmt.Sprintf("dynamo: %s not found", e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
