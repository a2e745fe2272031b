// Package config assembles the process-wide Config every rssflow binary
// (the flow server, the registry daemon, and each node process) loads at
// startup. It layers rssflow/pkg/config's plain GetEnv* helpers (no
// validation) with struct-level validation via go-playground/validator.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"rssflow/pkg/config"
)

// Config holds every environment-driven setting recognised across the
// fleet. Not every binary uses every field (a node process has no
// PostgresURL; the flow server has no ServiceURL), but all are loaded
// uniformly so a single Load works for every cmd/ entrypoint.
type Config struct {
	// GRPCPort is the node/registry RPC listen port.
	GRPCPort int `validate:"required,min=1,max=65535"`
	// HTTPPort is the flow server's HTTP listen port.
	HTTPPort int `validate:"required,min=1,max=65535"`
	// Address is the bind address for both listeners ("::" for dual-stack).
	Address string `validate:"required"`
	// RegistryURL is the node registry's dial address.
	RegistryURL string `validate:"required,hostname_port|uri"`
	// RedisURL is the Cached[T] store's connection string.
	RedisURL string `validate:"required,uri"`
	// PostgresURL is the WebSub subscription store's DSN; required only
	// where a binary actually opens the subscription store.
	PostgresURL string
	// PublicURL is this service's externally reachable base URL, used to
	// compose WebSub hub.callback. WebSub does not function without it.
	PublicURL string `validate:"omitempty,url"`
	// ServiceURL is this node's own dial-able address, reported to the
	// registry. Defaults to http://{lowercased node name}:{GRPCPort}.
	ServiceURL string
}

var validate = validator.New()

// Load reads every recognised option from the environment, applying
// defaults, and validates the result. nodeName is used only to compute
// ServiceURL's default; pass "" for binaries (the flow server, the
// registry) that don't report a ServiceURL.
func Load(nodeName string) (*Config, error) {
	cfg := &Config{
		GRPCPort:    config.GetEnvInt("GRPC_PORT", 50051),
		HTTPPort:    config.GetEnvInt("HTTP_PORT", 3434),
		Address:     config.GetEnvString("ADDRESS", "::"),
		RegistryURL: config.GetEnvString("REGISTRY_URL", "http://rssflow:50051"),
		RedisURL:    config.GetEnvString("REDIS_URL", "redis://valkey/"),
		PostgresURL: config.GetEnvString("POSTGRES_URL", ""),
		PublicURL:   config.GetEnvString("PUBLIC_URL", ""),
	}
	defaultServiceURL := ""
	if nodeName != "" {
		defaultServiceURL = fmt.Sprintf("http://%s:%d", strings.ToLower(nodeName), cfg.GRPCPort)
	}
	cfg.ServiceURL = config.GetEnvString("SERVICE_URL", defaultServiceURL)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
