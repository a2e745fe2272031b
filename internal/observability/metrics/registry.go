// Package metrics provides centralized Prometheus metrics for the flow platform.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Flow execution metrics track a flow's progress through its pipeline nodes
var (
	// FlowRunsTotal counts flow executions by flow name and terminal outcome
	FlowRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_runs_total",
			Help: "Total number of flow executions",
		},
		[]string{"flow", "outcome"}, // outcome: success, partial, failure
	)

	// FlowRunDuration measures total wall-clock time for a flow execution
	FlowRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flow_run_duration_seconds",
			Help:    "Time taken to execute a flow end to end",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"flow"},
	)

	// FlowEntriesOutput counts entries produced by a flow's final stage
	FlowEntriesOutput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_entries_output_total",
			Help: "Total number of entries produced by a flow run",
		},
		[]string{"flow"},
	)
)

// Node RPC metrics track individual node invocations within a flow
var (
	// NodeCallsTotal counts node RPC invocations by node kind and result
	NodeCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "node_calls_total",
			Help: "Total number of node RPC invocations",
		},
		[]string{"node", "kind", "result"}, // result: ok, error, circuit_open
	)

	// NodeCallDuration measures the latency of a single node RPC call
	NodeCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "node_call_duration_seconds",
			Help:    "Duration of a single node RPC call",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"node", "kind"},
	)

	// NodeCircuitState reports the current circuit breaker state per node (0=closed, 0.5=half-open, 1=open)
	NodeCircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "node_circuit_state",
			Help: "Circuit breaker state for a node: 0=closed, 0.5=half-open, 1=open",
		},
		[]string{"node"},
	)
)

// Registry metrics track the health of the node registry
var (
	// RegisteredNodesTotal tracks the number of nodes currently registered, by kind
	RegisteredNodesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "registry_nodes_total",
			Help: "Number of nodes currently registered by kind",
		},
		[]string{"kind"},
	)

	// RegistryPollsTotal counts registry health poll attempts by outcome
	RegistryPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_polls_total",
			Help: "Total number of registry health poll attempts",
		},
		[]string{"kind", "outcome"}, // outcome: ok, unreachable, evicted
	)
)

// Feed ingestion metrics track Fetch and Retrieve node activity
var (
	// EntriesFetchedTotal counts entries fetched from a feed source
	EntriesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entries_fetched_total",
			Help: "Total number of feed entries fetched from a source",
		},
		[]string{"source"},
	)

	// FeedFetchDuration measures time to fetch and parse a feed
	FeedFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_fetch_duration_seconds",
			Help:    "Time taken to fetch and parse a feed",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source"},
	)

	// FeedFetchErrors counts errors encountered while fetching a feed
	FeedFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_fetch_errors_total",
			Help: "Total number of feed fetch errors",
		},
		[]string{"source", "error_type"},
	)

	// ContentRetrieveAttemptsTotal counts content retrieval attempts by result
	ContentRetrieveAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_retrieve_attempts_total",
			Help: "Total number of content retrieval attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// ContentRetrieveDuration measures time to retrieve full article content
	ContentRetrieveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_retrieve_duration_seconds",
			Help:    "Time taken to retrieve full article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)
)

// WebSub metrics track subscription lifecycle and push delivery
var (
	// WebSubSubscriptionsActive tracks currently active WebSub subscriptions
	WebSubSubscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websub_subscriptions_active",
			Help: "Number of active WebSub subscriptions",
		},
	)

	// WebSubVerificationsTotal counts hub verification requests by outcome
	WebSubVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websub_verifications_total",
			Help: "Total number of WebSub hub verification requests",
		},
		[]string{"mode", "outcome"}, // mode: subscribe, unsubscribe
	)

	// WebSubNotificationsTotal counts content distribution notifications received
	WebSubNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websub_notifications_total",
			Help: "Total number of WebSub content distribution notifications received",
		},
		[]string{"outcome"}, // outcome: accepted, rejected_signature, rejected_topic
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named database operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
