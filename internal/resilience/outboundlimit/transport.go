// Package outboundlimit wraps an http.RoundTripper with rssflow/pkg/ratelimit,
// keyed by destination host, so that one noisy feed source or WebSub hub
// cannot starve outbound requests to another. It is the transport-level
// home for the rate limiter described in pkg/config.LoadRateLimitConfig:
// the Fetch and Retrieve nodes' outbound HTTP clients and the WebSub
// Subscriber's hub POST client all dial through it.
package outboundlimit

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"rssflow/pkg/ratelimit"
)

// ErrRateLimited is returned by RoundTrip when the destination host's
// outbound budget is exhausted. Callers' retry/circuitbreaker layers
// treat it like any other transient failure.
var ErrRateLimited = errors.New("outboundlimit: destination host rate limit exceeded")

// Transport rate-limits outbound requests by destination host before
// delegating to Base. A denied circuit breaker or store error fails
// open (request proceeds unthrottled) rather than blocking outbound
// traffic entirely, matching the health handler's own "never configured
// is healthy" stance.
type Transport struct {
	Base    http.RoundTripper
	Config  *ratelimit.RateLimitConfig
	Store   ratelimit.RateLimitStore
	Algo    *ratelimit.SlidingWindowAlgorithm
	Metrics ratelimit.RateLimitMetrics
	Breaker *ratelimit.CircuitBreaker
}

// New builds a Transport from cfg, wrapping base (http.DefaultTransport
// if nil). If cfg is nil or cfg.Enabled is false, RoundTrip always
// delegates straight to base.
func New(cfg *ratelimit.RateLimitConfig, metrics ratelimit.RateLimitMetrics, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if metrics == nil {
		metrics = ratelimit.NewNoOpMetrics()
	}
	t := &Transport{Base: base, Config: cfg, Metrics: metrics}
	if cfg == nil || !cfg.Enabled {
		return t
	}
	t.Store = ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
		MaxKeys: cfg.MaxActiveKeys,
		Clock:   &ratelimit.SystemClock{},
	})
	t.Algo = ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{})
	t.Breaker = ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
		FailureThreshold: cfg.CircuitBreakerFailureThreshold,
		RecoveryTimeout:  cfg.CircuitBreakerResetTimeout,
	})
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Config == nil || !t.Config.Enabled || t.Store == nil {
		return t.Base.RoundTrip(req)
	}

	host := req.URL.Hostname()
	limit, window := t.Config.GetHostLimit(host)

	if !t.Breaker.Allow() {
		slog.Warn("outboundlimit: circuit breaker open, passing through unthrottled", slog.String("host", host))
		return t.Base.RoundTrip(req)
	}

	start := time.Now()
	decision, err := t.Algo.IsAllowed(req.Context(), host, t.Store, limit, window)
	t.Metrics.RecordCheckDuration("outbound", time.Since(start))
	if err != nil {
		t.Breaker.RecordFailure()
		slog.Warn("outboundlimit: rate limit check failed, passing through unthrottled",
			slog.String("host", host), slog.Any("error", err))
		return t.Base.RoundTrip(req)
	}
	t.Breaker.RecordSuccess()
	t.Metrics.RecordRequest("outbound", host)

	if !decision.Allowed {
		t.Metrics.RecordDenied("outbound", host)
		return nil, ErrRateLimited
	}
	t.Metrics.RecordAllowed("outbound", host)

	return t.Base.RoundTrip(req)
}
