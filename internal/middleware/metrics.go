package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

type MetricsMiddleware struct {
	requestCounter   *metrics.Counter
	responseTimeHist *metrics.Histogram
	responseSizeHist *metrics.Histogram
}

func NewMetricsMiddleware() *MetricsMiddleware {
	return &MetricsMiddleware{
		requestCounter:   metrics.GetOrCreateCounter("http_requests_total"),
		responseTimeHist: metrics.GetOrCreateHistogram("http_response_time_seconds"),
		responseSizeHist: metrics.GetOrCreateHistogram("http_response_size_bytes"),
	}
}

func (m *MetricsMiddleware) WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := newLoggingResponseWriter(w)

		m.requestCounter.Inc()
		next.ServeHTTP(lrw, r)

		m.responseTimeHist.UpdateDuration(start)
		m.responseSizeHist.Update(float64(lrw.length))
		metrics.GetOrCreateCounter(fmt.Sprintf(`http_response_status_total{code="%d",route=%q}`,
			lrw.statusCode, routeGroup(r.URL.Path))).Inc()
	})
}

// ServeHTTP exposes every registered metric in Prometheus text format.
func (m *MetricsMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w, true)
}

// routeGroup keeps label cardinality bounded by using only the first path segment.
func routeGroup(path string) string {
	segment, _, _ := strings.Cut(strings.Trim(path, "/"), "/")
	switch segment {
	case "logos", "images", "health", "metrics", "stats":
		return segment
	}
	return "other"
}
