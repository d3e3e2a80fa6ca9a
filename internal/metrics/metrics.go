// Package metrics exposes Prometheus collectors for the rental service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rental"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	bookingCreated *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	reviews        *prometheus.CounterVec
	imageUploads   *prometheus.CounterVec
	imageBytes     prometheus.Histogram
}

// New creates and registers all collectors, including the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bookingCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Bookings requested by currency.",
		}, []string{"currency"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking lifecycle actions by outcome.",
		}, []string{"action", "outcome"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "property_reviews_total",
			Help:      "Admin property review decisions.",
		}, []string{"decision"}),
		imageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_uploads_total",
			Help:      "Property images uploaded by content type.",
		}, []string{"content_type"}),
		imageBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_upload_bytes",
			Help:      "Size of uploaded property images.",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 6),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.bookingCreated,
		m.transitions,
		m.reviews,
		m.imageUploads,
		m.imageBytes,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterRoutes mounts GET /metrics.
func (m *Metrics) RegisterRoutes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(m.Handler()))
}

// Middleware records request counts and latencies keyed by the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// BookingCreated counts a new booking.
func (m *Metrics) BookingCreated(currency string) {
	m.bookingCreated.WithLabelValues(currency).Inc()
}

// BookingTransitioned counts a lifecycle action attempt.
func (m *Metrics) BookingTransitioned(action, outcome string) {
	m.transitions.WithLabelValues(action, outcome).Inc()
}

// PropertyReviewed counts an admin review decision.
func (m *Metrics) PropertyReviewed(decision string) {
	m.reviews.WithLabelValues(decision).Inc()
}

// ImageUploaded counts an upload and observes its size.
func (m *Metrics) ImageUploaded(contentType string, sizeBytes int64) {
	m.imageUploads.WithLabelValues(contentType).Inc()
	m.imageBytes.Observe(float64(sizeBytes))
}
