package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/epistrains/internal/dynamo"
)

func TestRecorderObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Observe("full", 2, dynamo.Stats{Evaluations: 70, Steps: 10, Rejected: 2}, 3*time.Millisecond, nil)
	r.Observe("full", 2, dynamo.Stats{Evaluations: 35, Steps: 5}, time.Millisecond, nil)
	r.Observe("collapsed", 3, dynamo.Stats{}, 0, errors.New("boom"))

	if got := testutil.ToFloat64(r.runs.WithLabelValues("full", "ok")); got != 2 {
		t.Errorf("expected 2 successful runs, got %f", got)
	}
	if got := testutil.ToFloat64(r.runs.WithLabelValues("collapsed", "error")); got != 1 {
		t.Errorf("expected 1 failed run, got %f", got)
	}
	if got := testutil.ToFloat64(r.evaluations); got != 105 {
		t.Errorf("expected 105 evaluations, got %f", got)
	}
	if got := testutil.ToFloat64(r.steps); got != 15 {
		t.Errorf("expected 15 steps, got %f", got)
	}
	if got := testutil.ToFloat64(r.rejected); got != 2 {
		t.Errorf("expected 2 rejected steps, got %f", got)
	}
	if n := testutil.CollectAndCount(r.duration); n != 1 {
		t.Errorf("expected one duration series, got %d", n)
	}
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Observe("full", 1, dynamo.Stats{}, time.Second, nil)
}
