package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages used as the "stage" label of pipeline failures
const (
	StageValidation = "validation"
	StageFeatures   = "features"
	StageClassifier = "classifier"
	StageCompose    = "compose"
	StagePersist    = "persist"
)

var (
	// Registry holds the service's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loanscore",
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Total number of decisions produced, by label.",
		},
		[]string{"label"},
	)

	pipelineFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loanscore",
			Subsystem: "pipeline",
			Name:      "failures_total",
			Help:      "Total number of pipeline runs aborted or degraded, by stage.",
		},
		[]string{"stage"},
	)

	persistenceRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loanscore",
			Subsystem: "history",
			Name:      "append_retries_total",
			Help:      "Total number of retried history appends.",
		},
	)

	modelLoad = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "loanscore",
			Subsystem: "model",
			Name:      "load_duration_seconds",
			Help:      "Duration of classifier artifact loads.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"success"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loanscore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "loanscore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		decisions,
		pipelineFailures,
		persistenceRetries,
		modelLoad,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordDecision counts a composed decision.
func RecordDecision(label string) {
	decisions.WithLabelValues(label).Inc()
}

// RecordFailure counts a pipeline failure at the given stage.
func RecordFailure(stage string) {
	pipelineFailures.WithLabelValues(stage).Inc()
}

// RecordPersistenceRetry counts one retried history append.
func RecordPersistenceRetry() {
	persistenceRetries.Inc()
}

// RecordModelLoad records the outcome of a classifier artifact load.
func RecordModelLoad(duration time.Duration, success bool) {
	modelLoad.WithLabelValues(strconv.FormatBool(success)).Observe(duration.Seconds())
}

// RecordHTTPRequest records one served HTTP request. path should be a route template.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
