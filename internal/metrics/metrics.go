package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tasker"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Gateway HTTP requests by route and HTTP status code.",
		},
		[]string{"route", "code"},
	)

	quotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Computed quotes by service category.",
		},
		[]string{"category"},
	)

	surcharges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surcharges_applied_total",
			Help:      "Surcharges applied to quotes by reason.",
		},
		[]string{"reason"},
	)

	backendCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Calls to the REST backend by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	backendLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of calls to the REST backend.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	jobActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_actions_total",
			Help:      "Job lifecycle actions by action and result (ok, rejected, failed).",
		},
		[]string{"action", "result"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_cache_lookups_total",
			Help:      "Service cache lookups by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, quotes, surcharges, backendCalls, backendLatency, jobActions, cacheLookups)
	})
}

// IncHTTP counts a served request.
func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

// ObserveQuote counts a quote and each surcharge it carried.
func ObserveQuote(category string, reasons ...string) {
	quotes.WithLabelValues(category).Inc()
	for _, r := range reasons {
		surcharges.WithLabelValues(r).Inc()
	}
}

func ObserveBackend(operation, outcome string, seconds float64) {
	backendCalls.WithLabelValues(operation, outcome).Inc()
	backendLatency.WithLabelValues(operation).Observe(seconds)
}

func IncJobAction(action, result string) {
	jobActions.WithLabelValues(action, result).Inc()
}

// IncCache records a service cache hit or miss.
func IncCache(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}
