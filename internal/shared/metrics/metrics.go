package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Upload pipelines by terminal state",
	}, []string{"state"})

	uploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upload_bytes",
		Help:    "Bytes received per completed upload",
		Buckets: prometheus.ExponentialBuckets(1<<10, 4, 10),
	})

	uploadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upload_duration_seconds",
		Help:    "Upload pipeline duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"state"})

	uploadsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uploads_in_flight",
		Help: "Upload pipelines currently running",
	})

	sideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_side_effect_failures_total",
		Help: "Non-fatal post-upload failures by kind",
	}, []string{"kind"})

	// HTTPRequests counts HTTP requests by method, matched route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// UploadStarted marks a pipeline as running and returns the function that
// records its terminal state.
func UploadStarted() (finish func(state string, bytes int64, d time.Duration)) {
	uploadsInFlight.Inc()
	return func(state string, bytes int64, d time.Duration) {
		uploadsInFlight.Dec()
		uploadsTotal.WithLabelValues(state).Inc()
		uploadDuration.WithLabelValues(state).Observe(d.Seconds())
		if state == "completed" {
			uploadBytes.Observe(float64(bytes))
		}
	}
}

// IncSideEffectFailure counts a failed ledger write or notification.
func IncSideEffectFailure(kind string) {
	sideEffectFailures.WithLabelValues(kind).Inc()
}

// ObserveHTTP records one served request. route must be a registered pattern,
// never the raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
