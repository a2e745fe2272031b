package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"rssflow/internal/config"
	hhttp "rssflow/internal/handler/http"
	"rssflow/internal/observability/logging"
	"rssflow/internal/registry"
)

// nodeKinds are the node types the registry actively polls for, in
// addition to the nodes that self-register at startup via the
// Register RPC. Each resolves as a DNS name inside the cluster (a
// headless service per node kind, mirroring the Fetch node's own
// multi-host discovery conventions).
var nodeKinds = []string{"fetch", "filter", "replace", "sanitise", "retrieve"}

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	reg := registry.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startPollers(ctx, reg, cfg)

	grpcSrv, err := startGRPCServer(reg, cfg)
	if err != nil {
		logger.Error("failed to start registry gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	httpSrv := startHTTPServer(cfg)

	logger.Info("registry started",
		slog.String("grpc_addr", net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.GRPCPort))),
		slog.String("http_addr", net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.HTTPPort))))

	waitForShutdown(logger, func() {
		cancel()
		grpcSrv.GracefulStop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", slog.Any("error", err))
		}
	})
}

func startPollers(ctx context.Context, reg *registry.Registry, cfg *config.Config) {
	for _, kind := range nodeKinds {
		poller := registry.NewPoller(reg, kind, strconv.Itoa(cfg.GRPCPort))
		go poller.Run(ctx)
	}
}

func startGRPCServer(reg *registry.Registry, cfg *config.Config) (interface{ GracefulStop() }, error) {
	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.GRPCPort)))
	if err != nil {
		return nil, fmt.Errorf("listen on grpc port: %w", err)
	}
	svc := registry.NewService(reg)
	return registry.Serve(svc, lis), nil
}

func startHTTPServer(cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /health", &hhttp.HealthHandler{Version: "dev"})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.HTTPPort)),
		Handler:           hhttp.MetricsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("registry http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()
	return srv
}

func waitForShutdown(logger *slog.Logger, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down registry...")
	cleanup()
	logger.Info("registry stopped")
}
