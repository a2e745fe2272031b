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

	"rssflow/internal/config"
	hhttp "rssflow/internal/handler/http"
	"rssflow/internal/node/sanitise"
	"rssflow/internal/nodesvc"
	"rssflow/internal/observability/logging"
	"rssflow/internal/registry"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load(sanitise.Name)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	node := sanitise.New(cfg.ServiceURL)

	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.GRPCPort)))
	if err != nil {
		logger.Error("failed to listen on grpc port", slog.Any("error", err))
		os.Exit(1)
	}
	grpcSrv, err := nodesvc.Serve(sanitise.Name, node, lis)
	if err != nil {
		logger.Error("failed to start sanitise node grpc server", slog.Any("error", err))
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
	meta := nodesvc.NodeMeta{NodeName: sanitise.Name, Address: cfg.ServiceURL}
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
			logger.Error("sanitise node http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	logger.Info("sanitise node started",
		slog.String("grpc_addr", lis.Addr().String()),
		slog.String("http_addr", httpSrv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down sanitise node...")
	cancel()
	grpcSrv.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("sanitise node http shutdown failed", slog.Any("error", err))
	}
	logger.Info("sanitise node stopped")
}

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
