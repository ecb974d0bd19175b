package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "daybal"

// Metrics groups the collectors exported by the service
type Metrics struct {
	registry *prometheus.Registry

	Runs          *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	DatesRecorded prometheus.Counter
	Upstream      *prometheus.CounterVec
	PINAttempts   *prometheus.CounterVec
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Record and backfill runs by job and outcome.",
		}, []string{"job", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of record and backfill runs.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"job"}),
		DatesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_recorded_total",
			Help:      "Daily balances written to the store.",
		}),
		Upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Bank gateway requests by operation and status code.",
		}, []string{"op", "code"}),
		PINAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pin_attempts_total",
			Help:      "PIN verifications by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(m.Runs, m.RunDuration, m.DatesRecorded, m.Upstream, m.PINAttempts)
	return m
}

// ObserveRun records the outcome and duration of a job run. elapsed is
// measured by the caller on the same clock that stamps the run.
func (m *Metrics) ObserveRun(job string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.Runs.WithLabelValues(job, outcome).Inc()
	m.RunDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// ObserveUpstream counts a gateway response; code 0 means the request never completed
func (m *Metrics) ObserveUpstream(op string, code int) {
	if m == nil {
		return
	}
	m.Upstream.WithLabelValues(op, strconv.Itoa(code)).Inc()
}

// AddDates counts persisted daily balances
func (m *Metrics) AddDates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DatesRecorded.Add(float64(n))
}

// ObservePIN counts a PIN verification result
func (m *Metrics) ObservePIN(result string) {
	if m == nil {
		return
	}
	m.PINAttempts.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
