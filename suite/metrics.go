package suite

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/liuxd6825/webaccept/scenario"
)

const namespace = "webaccept"

// Metrics counts scenario outcomes in a dedicated Prometheus registry.
type Metrics struct {
	registry    *prometheus.Registry
	scenarios   *prometheus.CounterVec
	steps       *prometheus.CounterVec
	attachments prometheus.Counter
	duration    prometheus.Histogram
	inFlight    prometheus.Gauge
}

// NewMetrics registers the suite metrics in a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_total",
			Help:      "Finished scenarios by status.",
		}, []string{"status"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Recorded steps by status.",
		}, []string{"status"}),
		attachments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_total",
			Help:      "Diagnostic artifacts attached to scenario results.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scenario_duration_seconds",
			Help:      "Wall time of a scenario from provisioning to close.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scenarios_in_flight",
			Help:      "Scenarios currently holding a browser session.",
		}),
	}
	m.registry.MustRegister(m.scenarios, m.steps, m.attachments, m.duration, m.inFlight)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Started counts a scenario as in flight until Observe sees its result.
func (m *Metrics) Started() {
	if m != nil {
		m.inFlight.Inc()
	}
}

// Observe records the outcome of res.
func (m *Metrics) Observe(res *scenario.Result) {
	if m == nil || res == nil {
		return
	}
	m.inFlight.Dec()
	m.scenarios.WithLabelValues(res.Status.String()).Inc()
	for _, st := range res.Steps {
		m.steps.WithLabelValues(st.Status.String()).Inc()
	}
	m.attachments.Add(float64(len(res.Attachments)))
	m.duration.Observe(res.Duration.Seconds())
}

// WriteTextfile writes the metrics in the text exposition format to path,
// for collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
