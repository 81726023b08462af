// Package metrics records engine activity as Prometheus collectors.
//
// Metrics:
//   - sechecker_module_dispositions_total: final state per module
//   - sechecker_module_phase_duration_seconds: init/run callback duration
//   - sechecker_proofs_total: proofs attached to failing items by severity
//
// Collectors are registered on a caller-supplied registry so several
// libraries can coexist in one process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sechecker/sechecker/internal/types"
)

const namespace = "sechecker"

type Recorder struct {
	registry *prometheus.Registry

	dispositions  *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	proofs        *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with registry. A nil
// registry gets a fresh one.
func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	r := &Recorder{
		registry: registry,
		dispositions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_dispositions_total",
				Help:      "Final module states after a run",
			},
			[]string{"module", "state"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "module_phase_duration_seconds",
				Help:      "Duration of module init and run callbacks in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"module", "phase"},
		),
		proofs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "proofs_total",
				Help:      "Proofs attached to failing items",
			},
			[]string{"module", "severity"},
		),
	}
	registry.MustRegister(r.dispositions, r.phaseDuration, r.proofs)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveDisposition(module, state string) {
	r.dispositions.WithLabelValues(module, state).Inc()
}

func (r *Recorder) ObservePhase(module, phase string, d time.Duration) {
	r.phaseDuration.WithLabelValues(module, phase).Observe(d.Seconds())
}

func (r *Recorder) ObserveResult(res *types.Result) {
	if res == nil {
		return
	}
	for _, it := range res.Failing() {
		for _, p := range it.Proofs() {
			r.proofs.WithLabelValues(res.Module, p.Severity.String()).Inc()
		}
	}
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
