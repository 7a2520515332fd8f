package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "launchpad"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// LaunchMetrics observes launch sequences. It satisfies launch.Observer.
type LaunchMetrics struct {
	StepsCompleted *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	Launches       *prometheus.CounterVec
	LaunchDuration prometheus.Histogram
}

// NewLaunchMetrics creates and registers launch metrics on the given registry.
func NewLaunchMetrics(reg prometheus.Registerer) *LaunchMetrics {
	m := &LaunchMetrics{
		StepsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launch_steps_completed_total",
			Help:      "Total number of initialization steps completed, by step.",
		}, []string{"step"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "launch_step_duration_seconds",
			Help:      "Duration of initialization steps in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"step"}),
		Launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Total number of launches, by base handler result.",
		}, []string{"result"}),
		LaunchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "launch_duration_seconds",
			Help:      "Duration of the full launch sequence in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
	}

	reg.MustRegister(m.StepsCompleted, m.StepDuration, m.Launches, m.LaunchDuration)
	return m
}

func (m *LaunchMetrics) StepDone(name string, d time.Duration) {
	m.StepsCompleted.WithLabelValues(name).Inc()
	m.StepDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (m *LaunchMetrics) LaunchDone(result bool, d time.Duration) {
	m.Launches.WithLabelValues(strconv.FormatBool(result)).Inc()
	m.LaunchDuration.Observe(d.Seconds())
}
