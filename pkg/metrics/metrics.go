package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics owns the service's collectors and the registry they are exposed from.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	admissions     *prometheus.CounterVec
	eventsProduced *prometheus.CounterVec
}

func New(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"service": serviceName}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests.",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency in seconds.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),
		admissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "booking_admissions_total",
			Help:        "Booking operations by outcome kind.",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),
		eventsProduced: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "booking_events_published_total",
			Help:        "Booking lifecycle events handed to Kafka.",
			ConstLabels: constLabels,
		}, []string{"event_type", "outcome"}),
	}
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RecordAdmission counts one service operation. outcome is "success" or an error code.
func (m *Metrics) RecordAdmission(operation, outcome string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordEvent(eventType string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.eventsProduced.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
