package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/epistrains/internal/dynamo"
)

const namespace = "epistrains"

// Recorder instruments solver runs. A nil *Recorder records nothing.
type Recorder struct {
	runs        *prometheus.CounterVec
	evaluations prometheus.Counter
	steps       prometheus.Counter
	rejected    prometheus.Counter
	duration    *prometheus.HistogramVec
	strains     prometheus.Histogram
}

// NewRecorder registers the solver collectors with reg. Pass
// prometheus.NewRegistry() in tests; a second recorder on the same
// registerer panics.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "runs_total",
			Help:      "Solver runs by layout and outcome",
		}, []string{"layout", "status"}),
		evaluations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "evaluations_total",
			Help:      "Right-hand side evaluations across all runs",
		}),
		steps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "steps_total",
			Help:      "Accepted integration steps across all runs",
		}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "rejected_steps_total",
			Help:      "Rejected adaptive steps across all runs",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "duration_seconds",
			Help:      "Wall time spent integrating one run",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"layout"}),
		strains: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "strains",
			Help:      "Strain count per run",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}
}

// Observe records one finished run. stats may be the zero value when the
// run failed before integrating.
func (r *Recorder) Observe(layout string, strains int, stats dynamo.Stats, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.runs.WithLabelValues(layout, status).Inc()
	r.strains.Observe(float64(strains))
	if err != nil {
		return
	}
	r.evaluations.Add(float64(stats.Evaluations))
	r.steps.Add(float64(stats.Steps))
	r.rejected.Add(float64(stats.Rejected))
	r.duration.WithLabelValues(layout).Observe(elapsed.Seconds())
}
