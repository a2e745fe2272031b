package pathutil

import (
	"fmt"
	"testing"
)

// BenchmarkNormalizePath benchmarks the path normalization function.
// Target: <1μs per operation
func BenchmarkNormalizePath(b *testing.B) {
	paths := []string{
		"/flows/tech-news",
		"/flows/weekly-digest/runs",
		"/nodes/fetch-1",
		"/nodes/filter-2/health",
		"/health",
		"/metrics",
		"/auth/token",
		"/unknown/path/123",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		path := paths[i%len(paths)]
		_ = NormalizePath(path)
	}
}

// BenchmarkNormalizePath_Match benchmarks paths that match patterns (common case).
func BenchmarkNormalizePath_Match(b *testing.B) {
	path := "/flows/tech-news"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizePath(path)
	}
}

// BenchmarkNormalizePath_NoMatch benchmarks paths that don't match (static endpoints).
func BenchmarkNormalizePath_NoMatch(b *testing.B) {
	path := "/health"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizePath(path)
	}
}

// BenchmarkNormalizePath_WithQueryParams benchmarks paths with query parameters.
func BenchmarkNormalizePath_WithQueryParams(b *testing.B) {
	path := "/flows/tech-news?page=1&limit=10"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizePath(path)
	}
}

// BenchmarkNormalizePath_WithTrailingSlash benchmarks paths with trailing slashes.
func BenchmarkNormalizePath_WithTrailingSlash(b *testing.B) {
	path := "/flows/tech-news/"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizePath(path)
	}
}

// BenchmarkNormalizePath_LongPath benchmarks very long paths.
func BenchmarkNormalizePath_LongPath(b *testing.B) {
	path := "/flows/a-very-long-flow-name-used-to-stress-test-normalization/runs"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizePath(path)
	}
}

// BenchmarkNormalizePath_Parallel benchmarks concurrent normalization (simulates real load).
func BenchmarkNormalizePath_Parallel(b *testing.B) {
	paths := []string{
		"/flows/tech-news",
		"/nodes/fetch-1",
		"/health",
		"/metrics",
	}

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			path := paths[i%len(paths)]
			_ = NormalizePath(path)
			i++
		}
	})
}

// BenchmarkNormalizePath_AllPatterns benchmarks each pattern individually.
func BenchmarkNormalizePath_AllPatterns(b *testing.B) {
	testCases := []struct {
		name string
		path string
	}{
		{"flow_name", "/flows/tech-news"},
		{"flow_runs", "/flows/tech-news/runs"},
		{"flow_trigger", "/flows/tech-news/trigger"},
		{"node_id", "/nodes/fetch-1"},
		{"node_health", "/nodes/fetch-1/health"},
		{"websub_callback", "/websub/callback/a1b2c3"},
		{"websub_subscription", "/websub/subscriptions/a1b2c3"},
		{"static_health", "/health"},
		{"static_metrics", "/metrics"},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = NormalizePath(tc.path)
			}
		})
	}
}

// BenchmarkNormalizePath_WorstCase benchmarks the worst-case scenario (no match, all patterns checked).
func BenchmarkNormalizePath_WorstCase(b *testing.B) {
	path := "/unknown/very/long/path/that/does/not/match/any/pattern/123"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = NormalizePath(path)
	}
}

// BenchmarkNormalizePath_VsRawPath compares normalized vs raw path performance.
// This demonstrates the overhead of normalization.
func BenchmarkNormalizePath_VsRawPath(b *testing.B) {
	path := "/flows/tech-news"

	b.Run("with_normalization", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = NormalizePath(path)
		}
	})

	b.Run("without_normalization", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = path // Just use the path directly
		}
	})
}

// BenchmarkNormalizePath_CardinalityReduction demonstrates the memory savings.
// This shows why normalization is important for Prometheus metrics.
func BenchmarkNormalizePath_CardinalityReduction(b *testing.B) {
	// Simulate 10,000 unique flow names
	paths := make([]string, 10000)
	for i := 0; i < 10000; i++ {
		paths[i] = fmt.Sprintf("/flows/flow-%d", i+1)
	}

	b.Run("raw_paths", func(b *testing.B) {
		uniquePaths := make(map[string]bool)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			path := paths[i%len(paths)]
			uniquePaths[path] = true
		}
		b.StopTimer()
		b.Logf("Raw paths: %d unique paths", len(uniquePaths))
	})

	b.Run("normalized_paths", func(b *testing.B) {
		uniquePaths := make(map[string]bool)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			path := paths[i%len(paths)]
			normalized := NormalizePath(path)
			uniquePaths[normalized] = true
		}
		b.StopTimer()
		b.Logf("Normalized paths: %d unique paths", len(uniquePaths))
	})
}
