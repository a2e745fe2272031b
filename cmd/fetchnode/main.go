package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"rssflow/internal/cache"
	"rssflow/internal/config"
	hhttp "rssflow/internal/handler/http"
	"rssflow/internal/node/fetch"
	"rssflow/internal/nodesvc"
	"rssflow/internal/observability/logging"
	"rssflow/internal/registry"
	"rssflow/internal/resilience/outboundlimit"
	"rssflow/internal/websub"
	pkgconfig "rssflow/pkg/config"
	"rssflow/pkg/ratelimit"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(fetch.Name)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to cache store", slog.Any("error", err))
		os.Exit(1)
	}

	websubURL := pkgconfig.GetEnvString("WEBSUB_URL", "http://websubnode:50051")
	websubClient, err := websub.Dial(websubURL)
	if err != nil {
		logger.Error("failed to dial websub subscriber", slog.Any("error", err))
		os.Exit(1)
	}
	defer websubClient.Close()

	rlCfg, err := pkgconfig.LoadRateLimitConfig()
	if err != nil {
		logger.Error("failed to load outbound rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}
	httpClient := &http.Client{
		Transport: outboundlimit.New(rlCfg, ratelimit.NewPrometheusMetrics(), nil),
		Timeout:   30 * time.Second,
	}

	node := fetch.New(cfg.ServiceURL, httpClient, store, websubClient)

	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.GRPCPort)))
	if err != nil {
		logger.Error("failed to listen on grpc port", slog.Any("error", err))
		os.Exit(1)
	}
	grpcSrv, err := nodesvc.Serve(fetch.Name, node, lis)
	if err != nil {
		logger.Error("failed to start fetch node grpc server", slog.Any("error", err))
		os.Exit(1)
	}

	registryClient, err := registry.Dial(cfg.RegistryURL)
	if err != nil {
		logger.Error("failed to dial node registry", slog.Any("error", err))
		os.Exit(1)
	}
	defer registryClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	meta := nodesvc.NodeMeta{NodeName: fetch.Name, Address: cfg.ServiceURL}
	if err := registry.RegisterWithRetry(ctx, registryClient, meta); err != nil {
		logger.Error("failed to register with node registry", slog.Any("error", err))
		os.Exit(1)
	}
	go heartbeatLoop(ctx, registryClient, meta)

	mux := http.NewServeMux()
	mux.Handle("GET /health", &hhttp.HealthHandler{Version: "dev"})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())
	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.HTTPPort)),
		Handler:           hhttp.MetricsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("fetch node http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	logger.Info("fetch node started",
		slog.String("grpc_addr", lis.Addr().String()),
		slog.String("http_addr", httpSrv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down fetch node...")
	cancel()
	grpcSrv.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("fetch node http shutdown failed", slog.Any("error", err))
	}
	logger.Info("fetch node stopped")
}

// heartbeatLoop keeps the node's registry entry alive between the
// discovery Poller's own re-resolutions, so a self-registered node
// that outlives a DNS TTL isn't pruned as stale.
func heartbeatLoop(ctx context.Context, client *registry.Client, meta nodesvc.NodeMeta) {
	ticker := time.NewTicker(registry.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(ctx, meta); err != nil {
				slog.Warn("registry heartbeat failed", slog.Any("error", err))
			}
		}
	}
}
