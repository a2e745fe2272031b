package metrics

import (
	"time"
)

// RecordEntriesFetched records the number of entries fetched from a feed source.
// This metric helps track feed polling performance and source activity.
func RecordEntriesFetched(source string, count int) {
	if count <= 0 {
		return
	}
	EntriesFetchedTotal.WithLabelValues(source).Add(float64(count))
}

// RecordFeedFetch records metrics for a single Fetch node feed poll.
func RecordFeedFetch(source string, duration time.Duration, entriesFound int) {
	FeedFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	RecordEntriesFetched(source, entriesFound)
}

// RecordFeedFetchError records an error encountered while fetching a feed.
func RecordFeedFetchError(source, errorType string) {
	FeedFetchErrors.WithLabelValues(source, errorType).Inc()
}

// RecordContentRetrieveSuccess records a successful full-content retrieval.
func RecordContentRetrieveSuccess(duration time.Duration) {
	ContentRetrieveAttemptsTotal.WithLabelValues("success").Inc()
	ContentRetrieveDuration.Observe(duration.Seconds())
}

// RecordContentRetrieveFailed records a failed full-content retrieval attempt.
func RecordContentRetrieveFailed(duration time.Duration) {
	ContentRetrieveAttemptsTotal.WithLabelValues("failure").Inc()
	ContentRetrieveDuration.Observe(duration.Seconds())
}

// RecordContentRetrieveSkipped records a skipped retrieval, e.g. because the
// RSS-supplied content already met the configured length threshold.
func RecordContentRetrieveSkipped() {
	ContentRetrieveAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordFlowRun records the outcome and duration of a complete flow execution.
// Outcome should be one of "success", "partial", or "failure".
func RecordFlowRun(flow, outcome string, duration time.Duration, entriesOut int) {
	FlowRunsTotal.WithLabelValues(flow, outcome).Inc()
	FlowRunDuration.WithLabelValues(flow).Observe(duration.Seconds())
	if entriesOut > 0 {
		FlowEntriesOutput.WithLabelValues(flow).Add(float64(entriesOut))
	}
}

// RecordNodeCall records a single node RPC invocation.
// Result should be one of "ok", "error", or "circuit_open".
func RecordNodeCall(node, kind, result string, duration time.Duration) {
	NodeCallsTotal.WithLabelValues(node, kind, result).Inc()
	NodeCallDuration.WithLabelValues(node, kind).Observe(duration.Seconds())
}

// UpdateNodeCircuitState reports a node's circuit breaker state as a gauge:
// 0 for closed, 0.5 for half-open, 1 for open.
func UpdateNodeCircuitState(node string, value float64) {
	NodeCircuitState.WithLabelValues(node).Set(value)
}

// UpdateRegisteredNodes sets the current count of registered nodes for a kind.
func UpdateRegisteredNodes(kind string, count int) {
	RegisteredNodesTotal.WithLabelValues(kind).Set(float64(count))
}

// RecordRegistryPoll records the outcome of a registry health poll.
// Outcome should be one of "ok", "unreachable", or "evicted".
func RecordRegistryPoll(kind, outcome string) {
	RegistryPollsTotal.WithLabelValues(kind, outcome).Inc()
}

// UpdateWebSubSubscriptionsActive sets the current count of active WebSub subscriptions.
func UpdateWebSubSubscriptionsActive(count int) {
	WebSubSubscriptionsActive.Set(float64(count))
}

// RecordWebSubVerification records a hub verification handshake outcome.
// Mode should be "subscribe" or "unsubscribe"; outcome "confirmed" or "rejected".
func RecordWebSubVerification(mode, outcome string) {
	WebSubVerificationsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordWebSubNotification records an inbound content distribution notification.
// Outcome should be one of "accepted", "rejected_signature", or "rejected_topic".
func RecordWebSubNotification(outcome string) {
	WebSubNotificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordDBQuery records the duration of a database query operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
