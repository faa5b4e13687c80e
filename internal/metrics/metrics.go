// Package metrics holds the Prometheus collectors of the sampling pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pricewatch"

type Metrics struct {
	BatchRuns          *prometheus.CounterVec
	BatchDuration      prometheus.Histogram
	SamplesStored      prometheus.Counter
	InstrumentFailures *prometheus.CounterVec
	LastBatchFailures  prometheus.Gauge
	SkippedTicks       prometheus.Counter
	WorkerErrors       prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Batch passes by outcome",
		}, []string{"outcome"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch pass duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		SamplesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "samples_stored_total",
			Help:      "Price samples appended by batch passes",
		}),
		InstrumentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "instrument_failures_total",
			Help:      "Instruments skipped inside a batch pass, by failure kind",
		}, []string{"kind"}),
		LastBatchFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "last_failures",
			Help:      "Instrument failures of the most recent batch pass",
		}),
		SkippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "skipped_ticks_total",
			Help:      "Ticks skipped because a batch was still running",
		}),
		WorkerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "worker_errors_total",
			Help:      "Worker execution errors",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.BatchRuns,
			m.BatchDuration,
			m.SamplesStored,
			m.InstrumentFailures,
			m.LastBatchFailures,
			m.SkippedTicks,
			m.WorkerErrors,
			m.HTTPRequests,
		)
	}
	return m
}

func (m *Metrics) ObserveBatch(outcome string, d time.Duration, failed int) {
	if m == nil {
		return
	}
	m.BatchRuns.WithLabelValues(outcome).Inc()
	m.BatchDuration.Observe(d.Seconds())
	m.LastBatchFailures.Set(float64(failed))
}

func (m *Metrics) SampleStored() {
	if m == nil {
		return
	}
	m.SamplesStored.Inc()
}

func (m *Metrics) InstrumentFailed(kind string) {
	if m == nil {
		return
	}
	m.InstrumentFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) TickSkipped() {
	if m == nil {
		return
	}
	m.SkippedTicks.Inc()
}

func (m *Metrics) WorkerError() {
	if m == nil {
		return
	}
	m.WorkerErrors.Inc()
}

func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
