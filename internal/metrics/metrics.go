// Package metrics holds the Prometheus collectors of the webui operator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "webui_operator"

// Result label values for passes and publishes
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Collector is a prometheus.Collector that collects metrics about
// convergence passes.
type Collector struct {
	passes         *prometheus.CounterVec
	passDuration   *prometheus.HistogramVec
	artifactWrites *prometheus.CounterVec
	restarts       prometheus.Counter
	publishes      *prometheus.CounterVec
	ready          prometheus.Gauge
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "passes_total",
				Help:      "The number of convergence passes, by trigger and result.",
			}, []string{"trigger", "result"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "pass_duration_seconds",
				Help:      "The time taken by a convergence pass.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			}, []string{"trigger"},
		),
		artifactWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "artifact_writes_total",
				Help:      "The number of configuration artifacts written to the workload.",
			}, []string{"path"},
		),
		restarts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "service_restarts_total",
				Help:      "The number of workload service restarts.",
			},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "publishes_total",
				Help:      "The number of endpoint publications, by relation and result.",
			}, []string{"relation", "result"},
		),
		ready: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "ready",
				Help:      "Whether the last pass projected an active status.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.passes.Describe(ch)
	c.passDuration.Describe(ch)
	c.artifactWrites.Describe(ch)
	c.restarts.Describe(ch)
	c.publishes.Describe(ch)
	c.ready.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.passes.Collect(ch)
	c.passDuration.Collect(ch)
	c.artifactWrites.Collect(ch)
	c.restarts.Collect(ch)
	c.publishes.Collect(ch)
	c.ready.Collect(ch)
}

// ObservePass records a finished pass
func (c *Collector) ObservePass(trigger, result string, elapsed time.Duration) {
	c.passes.WithLabelValues(trigger, result).Inc()
	c.passDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
}

// ArtifactWritten records a write of the artifact at path
func (c *Collector) ArtifactWritten(path string) {
	c.artifactWrites.WithLabelValues(path).Inc()
}

// ServiceRestarted records a workload restart
func (c *Collector) ServiceRestarted() {
	c.restarts.Inc()
}

// Published records an endpoint publication attempt
func (c *Collector) Published(relation, result string) {
	c.publishes.WithLabelValues(relation, result).Inc()
}

// SetReady records the readiness projected by the last pass
func (c *Collector) SetReady(ready bool) {
	if ready {
		c.ready.Set(1)
		return
	}
	c.ready.Set(0)
}
