// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Flow execution and node RPC metrics
//   - Feed ingestion and WebSub subscription metrics
//   - Database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "rssflow/internal/observability/metrics"
//
//	func pollFeed(source string) {
//	    start := time.Now()
//	    // ... fetch and parse the feed ...
//	    entries := 10
//
//	    metrics.RecordFeedFetch(source, time.Since(start), entries)
//	}
package metrics
