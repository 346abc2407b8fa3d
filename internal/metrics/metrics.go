package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cleanItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signature_api",
			Name:      "clean_items_total",
			Help:      "Total batch-clean items by result (success, decode_error, model_error, error)",
		},
		[]string{"result"},
	)

	matchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signature_api",
			Name:      "match_requests_total",
			Help:      "Total completed match requests by decision",
		},
		[]string{"decision"},
	)

	operationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signature_api",
			Name:      "operation_duration_seconds",
			Help:      "Duration of processing operations by operation (clean, match)",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(cleanItems, matchRequests, operationLatency)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncCleanItem(result string) { cleanItems.WithLabelValues(result).Inc() }

func IncMatch(decision string) { matchRequests.WithLabelValues(decision).Inc() }

func ObserveOperation(operation string, dur time.Duration) {
	operationLatency.WithLabelValues(operation).Observe(dur.Seconds())
}
