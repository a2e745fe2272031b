package config

import (
	"log/slog"
	"time"

	"rssflow/pkg/ratelimit"
)

// LoadRateLimitConfig loads outbound rate limiting configuration from environment variables.
//
// This function reads all rate limiting configuration from environment variables
// and returns a validated RateLimitConfig. If any values are invalid, it logs
// warnings and uses safe defaults instead of failing.
//
// Environment variables:
//   - RATELIMIT_ENABLED: Enable/disable rate limiting (default: true)
//   - RATELIMIT_DEFAULT_LIMIT: Requests per window per destination host (default: 60)
//   - RATELIMIT_DEFAULT_WINDOW: Window for the default limit (default: 1m)
//   - RATELIMIT_MAX_KEYS: Maximum hosts tracked in memory (default: 10000)
//   - RATELIMIT_CLEANUP_INTERVAL: Cleanup interval (default: 5m)
//   - RATELIMIT_CB_FAILURE_THRESHOLD: Circuit breaker failure threshold (default: 10)
//   - RATELIMIT_CB_RECOVERY_TIMEOUT: Circuit breaker recovery timeout (default: 30s)
//
// Returns:
//   - *ratelimit.RateLimitConfig: Validated configuration with defaults applied
//   - error: Always nil (validation failures result in warnings and defaults)
func LoadRateLimitConfig() (*ratelimit.RateLimitConfig, error) {
	config := &ratelimit.RateLimitConfig{}

	config.Enabled = GetEnvBool("RATELIMIT_ENABLED", true)

	defaultLimit := GetEnvInt("RATELIMIT_DEFAULT_LIMIT", 60)
	if defaultLimit < 0 {
		slog.Warn("invalid RATELIMIT_DEFAULT_LIMIT, using default",
			slog.Int("value", defaultLimit), slog.Int("default", 60))
		defaultLimit = 60
	}
	config.DefaultLimit = defaultLimit

	defaultWindow := GetEnvDuration("RATELIMIT_DEFAULT_WINDOW", 1*time.Minute)
	if err := ValidatePositiveDuration(defaultWindow); err != nil {
		slog.Warn("invalid RATELIMIT_DEFAULT_WINDOW, using default",
			slog.String("value", defaultWindow.String()),
			slog.String("default", "1m"),
			slog.String("error", err.Error()))
		defaultWindow = 1 * time.Minute
	}
	config.DefaultWindow = defaultWindow

	maxKeys := GetEnvInt("RATELIMIT_MAX_KEYS", 10000)
	if maxKeys < 0 {
		slog.Warn("invalid RATELIMIT_MAX_KEYS, using default",
			slog.Int("value", maxKeys), slog.Int("default", 10000))
		maxKeys = 10000
	}
	config.MaxActiveKeys = maxKeys

	cleanupInterval := GetEnvDuration("RATELIMIT_CLEANUP_INTERVAL", 5*time.Minute)
	if err := ValidatePositiveDuration(cleanupInterval); err != nil {
		slog.Warn("invalid RATELIMIT_CLEANUP_INTERVAL, using default",
			slog.String("value", cleanupInterval.String()),
			slog.String("default", "5m"),
			slog.String("error", err.Error()))
		cleanupInterval = 5 * time.Minute
	}
	config.CleanupInterval = cleanupInterval

	// CleanupMaxAge is not exposed as an env var; 1 hour is a sane fixed default.
	config.CleanupMaxAge = 1 * time.Hour

	cbFailureThreshold := GetEnvInt("RATELIMIT_CB_FAILURE_THRESHOLD", 10)
	if cbFailureThreshold < 0 {
		slog.Warn("invalid RATELIMIT_CB_FAILURE_THRESHOLD, using default",
			slog.Int("value", cbFailureThreshold), slog.Int("default", 10))
		cbFailureThreshold = 10
	}
	config.CircuitBreakerFailureThreshold = cbFailureThreshold

	cbResetTimeout := GetEnvDuration("RATELIMIT_CB_RECOVERY_TIMEOUT", 30*time.Second)
	if err := ValidatePositiveDuration(cbResetTimeout); err != nil {
		slog.Warn("invalid RATELIMIT_CB_RECOVERY_TIMEOUT, using default",
			slog.String("value", cbResetTimeout.String()),
			slog.String("default", "30s"),
			slog.String("error", err.Error()))
		cbResetTimeout = 30 * time.Second
	}
	config.CircuitBreakerResetTimeout = cbResetTimeout

	if err := config.Validate(); err != nil {
		slog.Warn("rate limit configuration validation failed, applying defaults",
			slog.String("error", err.Error()))
		config.ApplyDefaults()
	}

	return config, nil
}
