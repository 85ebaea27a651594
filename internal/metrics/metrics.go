// Package metrics exposes pipeline counters for Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ziadkadry99/notedraft/internal/pipeline"
)

const namespace = "notedraft"

// Collector holds the pipeline metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	runsInFlight    prometheus.Gauge
}

// NewCollector creates a Collector with Go runtime and process metrics
// registered alongside the pipeline ones.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Pipeline attempts by the state they ended in",
			},
			[]string{"backend", "state"},
		),
		attemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Duration of one generate-extract-validate attempt",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"backend"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Completed pipeline runs by outcome",
			},
			[]string{"backend", "outcome"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of a pipeline run",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 180, 600},
			},
			[]string{"backend"},
		),
		runsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_in_flight",
				Help:      "Pipeline runs currently executing",
			},
		),
	}
}

// Observer returns a pipeline.Observer that counts attempts for backend.
func (c *Collector) Observer(backend string) pipeline.Observer {
	return pipeline.ObserverFunc(func(a pipeline.Attempt) {
		c.attemptsTotal.WithLabelValues(backend, a.State.String()).Inc()
		c.attemptDuration.WithLabelValues(backend).Observe(a.Duration.Seconds())
	})
}

// RunStarted marks a run as in flight and returns the function that
// records its outcome.
func (c *Collector) RunStarted(backend string) func(err error) {
	c.runsInFlight.Inc()
	start := time.Now()
	return func(err error) {
		c.runsInFlight.Dec()
		c.runDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
		c.runsTotal.WithLabelValues(backend, Outcome(err)).Inc()
	}
}

// Outcome classifies a run error for labelling.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "succeeded"
	case errors.Is(err, pipeline.ErrRetryBudgetExhausted):
		return "exhausted"
	case errors.Is(err, pipeline.ErrGeneration):
		return "generation_error"
	default:
		return "error"
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile dumps the registry to path in the text format read by the
// node_exporter textfile collector. Batch runs use it in place of a scrape.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
