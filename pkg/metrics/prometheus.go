package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	readingsStored *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	anomaliesTotal *prometheus.CounterVec
	lastKwh        *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		readingsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_readings_stored_total",
				Help: "Total number of readings written to backend",
			},
			[]string{"backend", "source"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		anomaliesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridpulse_anomalies_total",
				Help: "Total number of anomalous readings detected",
			},
			[]string{"source"},
		),
		lastKwh: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridpulse_last_kwh",
				Help: "Last recorded consumption for a customer",
			},
			[]string{"customer"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordReadingStored records a reading written to a backend.
func (r *Recorder) RecordReadingStored(backend, source string) {
	r.readingsStored.WithLabelValues(backend, source).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAnomaly records an anomalous reading from a source.
func (r *Recorder) RecordAnomaly(source string) {
	r.anomaliesTotal.WithLabelValues(source).Inc()
}

// RecordLastKwh records the last consumption value for a customer.
func (r *Recorder) RecordLastKwh(customer string, kwh float64) {
	r.lastKwh.WithLabelValues(customer).Set(kwh)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
