package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain/repository.Metrics using Prometheus.
type Recorder struct {
	cycles          *prometheus.CounterVec
	cycleDuration   *prometheus.HistogramVec
	subjects        *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	volatilityIndex prometheus.Gauge
	ingested        *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_cycles_total",
				Help: "Scheduled cycles by job and result",
			},
			[]string{"job", "result"},
		),
		cycleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskpulse_cycle_duration_seconds",
				Help:    "Wall time of one scheduled cycle",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800, 3600},
			},
			[]string{"job"},
		),
		subjects: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_cycle_subjects_total",
				Help: "Subjects evaluated per job by outcome (ok, failed, cancelled)",
			},
			[]string{"job", "result"},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_alerts_emitted_total",
				Help: "Alerts emitted after deduplication",
			},
			[]string{"type", "level"},
		),
		volatilityIndex: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskpulse_market_volatility_index",
				Help: "Market-wide volatility index of the last risk cycle",
			},
		),
		ingested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_messages_ingested_total",
				Help: "Feed messages persisted by topic",
			},
			[]string{"topic"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle counts a finished cycle and observes its duration.
func (r *Recorder) RecordCycle(job, result string, seconds float64) {
	r.cycles.WithLabelValues(job, result).Inc()
	r.cycleDuration.WithLabelValues(job).Observe(seconds)
}

func (r *Recorder) RecordSubject(job, result string) {
	r.subjects.WithLabelValues(job, result).Inc()
}

func (r *Recorder) RecordAlert(alertType, level string) {
	r.alerts.WithLabelValues(alertType, level).Inc()
}

func (r *Recorder) RecordVolatilityIndex(v float64) {
	r.volatilityIndex.Set(v)
}

func (r *Recorder) RecordMessageIngested(topic string) {
	r.ingested.WithLabelValues(topic).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
