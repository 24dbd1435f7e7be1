package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Clip(t *testing.T) {
	s := State{1, -1e-9, 0, 3}
	c := s.Clip()
	if c[1] != 0 || c[0] != 1 || c[3] != 3 {
		t.Errorf("Clip() = %v", c)
	}
	if s[1] != -1e-9 {
		t.Error("Clip modified the receiver")
	}
}

func TestTrajectory_Series(t *testing.T) {
	tr := &Trajectory{
		Times:  []float64{0, 0.5, 1},
		States: []State{{1, 2}, {3, 4}, {5, 6}},
	}

	got, err := tr.Series(1)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if got[0] != 2 || got[1] != 4 || got[2] != 6 {
		t.Errorf("Series(1) = %v", got)
	}

	if _, err := tr.Series(2); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	var empty *Trajectory
	if _, err := empty.Series(0); !errors.Is(err, ErrPrecondition) {
		t.Errorf("expected ErrPrecondition, got %v", err)
	}

	totals := tr.Totals()
	if totals[0] != 3 || totals[2] != 11 {
		t.Errorf("Totals() = %v", totals)
	}

	if got := tr.SamplesPerUnitTime(); got != 3 {
		t.Errorf("SamplesPerUnitTime() = %v, want 3", got)
	}
}

func TestErrors(t *testing.T) {
	ie := &IntegrationError{Time: 1.5, Step: 150, Message: "test error", Wrapped: ErrStepTooSmall}
	expected := "step 150 (t=1.5000): test error"
	if ie.Error() != expected {
		t.Errorf("IntegrationError.Error() = %q, want %q", ie.Error(), expected)
	}
	if !errors.Is(ie, ErrStepTooSmall) {
		t.Error("IntegrationError should unwrap to its cause")
	}

	if err := Configf("strains", "at least one strain is required"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Configf should wrap ErrConfiguration, got %v", err)
	}

	nf := &NotFoundError{Key: "class {3}", Invariant: true}
	if !errors.Is(nf, ErrNotFound) {
		t.Error("NotFoundError should unwrap to ErrNotFound")
	}
	if nf.Error() != "dynamo: class {3} violates compartment invariants" {
		t.Errorf("unexpected message %q", nf.Error())
	}
}
