package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	keyValidationsTotal *prometheus.CounterVec
)

// InitRequestMetrics registers the server-side request metrics. Call once
// at startup before installing RequestMetrics.
func InitRequestMetrics() {
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "narrify",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served.",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "narrify",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path", "method"},
	)
	keyValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "narrify",
			Name:      "key_validations_total",
			Help:      "Total number of API key validations by outcome.",
		},
		[]string{"outcome"},
	)
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, keyValidationsTotal)
}

func countValidation(outcome string) {
	if keyValidationsTotal != nil {
		keyValidationsTotal.WithLabelValues(outcome).Inc()
	}
}

// RequestMetrics observes every request into the server-side Prometheus
// metrics. Health checks are skipped to keep the series small.
func RequestMetrics(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)

		path := string(ctx.Path())
		if path == "/healthz" {
			return
		}
		method := string(ctx.Method())

		httpRequestsTotal.WithLabelValues(path, method, strconv.Itoa(ctx.Response.StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
	}
}
