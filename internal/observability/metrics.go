package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the HTTP surface and the
// résumé counters
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	views          prometheus.Counter
	downloads      prometheus.Counter
	exportFailures prometheus.Counter
}

// NewMetrics registers all collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status_code"},
		),
		views: factory.NewCounter(prometheus.CounterOpts{
			Name: "resume_views_total",
			Help: "Résumé views counted",
		}),
		downloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "resume_downloads_total",
			Help: "Résumé downloads counted",
		}),
		exportFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pdf_export_failures_total",
			Help: "PDF exports that failed or produced malformed output",
		}),
	}
}

// ObserveRequest records one handled HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, route, code).Inc()
	m.duration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}

func (m *Metrics) ResumeViewed()     { m.views.Inc() }
func (m *Metrics) ResumeDownloaded() { m.downloads.Inc() }
func (m *Metrics) ExportFailed()     { m.exportFailures.Inc() }
