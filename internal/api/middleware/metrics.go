// metrics.go — Prometheus HTTP метрики: cm_http_requests_total,
// cm_http_request_duration_seconds, cm_http_request_size_bytes.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_http_requests_total",
			Help: "Общее количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpRequestSize — размер тел запросов (multipart с изображениями).
	httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cm_http_request_size_bytes",
			Help:    "Размер тела HTTP-запроса в байтах",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
			if r.ContentLength > 0 {
				httpRequestSize.WithLabelValues(r.Method, path).Observe(float64(r.ContentLength))
			}
		})
	}
}

// normalizePath заменяет идентификаторы в пути шаблонами маршрутов,
// чтобы не раздувать кардинальность лейблов.
// /cars/65f1c2... → /cars/{id}; /uploads/abc.jpg → /uploads/{name}
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/cars", "/cars/search", "/cars/stats":
		return path
	}

	if rest, ok := strings.CutPrefix(path, "/cars/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/cars/{id}"
	}
	if rest, ok := strings.CutPrefix(path, "/uploads/"); ok && rest != "" {
		return "/uploads/{name}"
	}

	return "other"
}
