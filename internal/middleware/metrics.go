package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counter - tracks total requests by method, route, and status
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunebox_http_requests_total",
			Help: "Total number of API requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration histogram - tracks response times by method, route, and status
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tunebox_http_request_duration_seconds",
			Help:    "Histogram of request durations by method, route, and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	// Request size histogram - uploads dominate this one
	RequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tunebox_http_request_size_bytes",
			Help:    "Histogram of request sizes by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		},
		[]string{"method", "route"},
	)

	// Response size histogram - streams and covers dominate this one
	ResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tunebox_http_response_size_bytes",
			Help:    "Histogram of response sizes by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		},
		[]string{"method", "route"},
	)
)

// MetricsMiddleware creates middleware that records request metrics
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// the matched route is only known once the handler chain ran
		route := c.Route().Path
		method := c.Method()
		status := strconv.Itoa(c.Response().StatusCode())

		RequestCount.WithLabelValues(method, route, status).Inc()
		RequestDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())

		if reqSize := len(c.Request().Body()); reqSize > 0 {
			RequestSize.WithLabelValues(method, route).Observe(float64(reqSize))
		}
		if respSize := len(c.Response().Body()); respSize > 0 {
			ResponseSize.WithLabelValues(method, route).Observe(float64(respSize))
		}

		return err
	}
}
