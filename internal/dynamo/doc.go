// Package dynamo provides core simulation primitives for compartmental
// ODE models.
//
// The package defines the fundamental interfaces and types shared by the
// model, the integrators and the reporting code:
//
//   - [State]: vector of compartment populations
//   - [System]: interface for ODE right-hand sides (dX/dt = f(t, X))
//   - [Trajectory]: sampled solution owned by the caller
//   - [Observer] and [Metric]: hooks invoked on every reported sample
//
// # Errors
//
// Every failure is reported through one of the typed errors in this
// package ([ConfigurationError], [IntegrationError], [PreconditionError],
// [NotFoundError]). Each unwraps to a sentinel so callers can match with
// errors.Is.
//
// # Thread Safety
//
// Systems are expected to be immutable once built; Derive may be called
// concurrently. A Trajectory belongs to the run that produced it.
package dynamo
