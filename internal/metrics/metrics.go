// Package metrics provides Prometheus metrics for the scanner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"codescanner/internal/model"
)

// Recorder counts controller decisions and capture runs. It implements
// scanner.Recorder.
type Recorder struct {
	delivered  *prometheus.CounterVec
	suppressed *prometheus.CounterVec
	failures   *prometheus.CounterVec
	runs       prometheus.Counter
	dispatched *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codescanner_results_delivered_total",
			Help: "Total number of scan results delivered to the caller, by code kind.",
		}, []string{"kind"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codescanner_frames_suppressed_total",
			Help: "Total number of frames that produced no result, by reason.",
		}, []string{"reason"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codescanner_setup_failures_total",
			Help: "Total number of capture setup failures, by error kind.",
		}, []string{"error"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codescanner_capture_runs_total",
			Help: "Total number of capture runs started.",
		}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codescanner_notifications_total",
			Help: "Total number of results handled by the dispatcher, by outcome (sent/filtered/stored/dropped).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.delivered, r.suppressed, r.failures, r.runs, r.dispatched)
	return r
}

// Delivered counts a delivered result.
func (r *Recorder) Delivered(kind model.CodeKind) {
	r.delivered.WithLabelValues(string(kind)).Inc()
}

// Suppressed counts a frame that produced no result.
func (r *Recorder) Suppressed(reason string) {
	r.suppressed.WithLabelValues(reason).Inc()
}

// SetupFailed counts a setup failure.
func (r *Recorder) SetupFailed(kind model.ErrorKind) {
	r.failures.WithLabelValues(string(kind)).Inc()
}

// RunStarted counts a capture run.
func (r *Recorder) RunStarted() {
	r.runs.Inc()
}

// Dispatched counts a dispatcher outcome.
func (r *Recorder) Dispatched(outcome string) {
	r.dispatched.WithLabelValues(outcome).Inc()
}
