package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics represents the monitoring system
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	requestDuration *prometheus.HistogramVec
	requestCount    *prometheus.CounterVec
	errorCount      *prometheus.CounterVec

	// Auth metrics
	otpIssued        prometheus.Counter
	otpVerifications *prometheus.CounterVec
	signins          *prometheus.CounterVec
	rateLimited      prometheus.Counter

	// Domain metrics
	storeRecords      *prometheus.GaugeVec
	eventsPublished   *prometheus.CounterVec
	positionsRevalued prometheus.Counter
	swept             *prometheus.CounterVec
}

// NewMetrics creates a metrics collector on its own registry so tests and
// multiple servers in one process never collide on registration.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "status"},
		),
		requestCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		errorCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "error_count_total",
				Help:      "Total number of API errors by code",
			},
			[]string{"code"},
		),

		otpIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_issued_total",
			Help:      "One-time codes issued",
		}),
		otpVerifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_verifications_total",
				Help:      "OTP verification attempts by result",
			},
			[]string{"result"},
		),
		signins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signins_total",
				Help:      "Sign-in attempts by result",
			},
			[]string{"result"},
		),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),

		storeRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_records",
				Help:      "Live records per entity kind",
			},
			[]string{"kind"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Domain events by type and result",
			},
			[]string{"type", "result"},
		),
		positionsRevalued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_revalued_total",
			Help:      "Positions marked to a fresh price",
		}),
		swept: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swept_entries_total",
				Help:      "Expired entries removed by the sweeper",
			},
			[]string{"kind"},
		),
	}
}

// ObserveRequest records HTTP request metrics
func (m *Metrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(route, method, code).Observe(duration.Seconds())
	m.requestCount.WithLabelValues(route, method, code).Inc()
}

// ObserveError records an API error by its error code
func (m *Metrics) ObserveError(errorCode string) {
	m.errorCount.WithLabelValues(errorCode).Inc()
}

func (m *Metrics) OTPIssued() { m.otpIssued.Inc() }

func (m *Metrics) OTPVerified(result string) { m.otpVerifications.WithLabelValues(result).Inc() }

func (m *Metrics) SignIn(result string) { m.signins.WithLabelValues(result).Inc() }

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

// SetStoreCounts publishes live record counts per kind
func (m *Metrics) SetStoreCounts(counts map[string]int) {
	for kind, n := range counts {
		m.storeRecords.WithLabelValues(kind).Set(float64(n))
	}
}

func (m *Metrics) EventPublished(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) PositionsRevalued(n int) { m.positionsRevalued.Add(float64(n)) }

func (m *Metrics) Swept(kind string, n int) { m.swept.WithLabelValues(kind).Add(float64(n)) }

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsHandler returns an HTTP handler for exposing metrics
func (m *Metrics) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
