package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"rssflow/internal/config"
	"rssflow/internal/flowexec"
	"rssflow/internal/flowstore"
	hhttp "rssflow/internal/handler/http"
	flowhandler "rssflow/internal/handler/http/flow"
	"rssflow/internal/handler/http/requestid"
	"rssflow/internal/observability/logging"
	"rssflow/internal/observability/tracing"
	"rssflow/internal/registry"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	flows, err := flowstore.NewStaticStore(flowsPath())
	if err != nil {
		logger.Error("failed to load flow definitions", slog.Any("error", err))
		os.Exit(1)
	}

	reg := registry.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registryClient, err := registry.Dial(cfg.RegistryURL)
	if err != nil {
		logger.Error("failed to dial node registry", slog.Any("error", err))
		os.Exit(1)
	}
	defer registryClient.Close()
	go syncRegistry(ctx, registryClient, reg)

	pool := flowexec.NewClientPool()
	defer pool.Close()
	exec := flowexec.New(flows, reg, pool)

	mux := http.NewServeMux()
	mux.Handle("GET /flow/{name}", flowhandler.New(exec))
	mux.Handle("GET /health", &hhttp.HealthHandler{Version: "dev"})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	handler := requestid.Middleware(hhttp.MetricsMiddleware(tracing.Middleware(mux)))
	handler = hhttp.Timeout(30 * time.Second)(handler)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.HTTPPort)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("flow server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("flow server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down flow server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("flow server shutdown failed", slog.Any("error", err))
	}
	logger.Info("flow server stopped")
}

// syncRegistry mirrors the central node registry's ListNodes view into
// reg every poll interval, so the Flow Executor resolves steps against
// an in-process snapshot instead of an RPC per step.
func syncRegistry(ctx context.Context, client *registry.Client, reg *registry.Registry) {
	ticker := time.NewTicker(registry.PollInterval)
	defer ticker.Stop()

	refresh := func() {
		nodes, err := client.ListNodes(ctx)
		if err != nil {
			slog.Warn("registry sync failed", slog.Any("error", err))
			return
		}
		for _, n := range nodes {
			reg.Upsert(n)
		}
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// flowsPath returns the path to the static flow-definitions file,
// defaulting to flows.json in the working directory. Flow definitions
// are authored and persisted outside this process; this only controls
// where the bootstrap snapshot is read from.
func flowsPath() string {
	if p := os.Getenv("FLOWS_PATH"); p != "" {
		return p
	}
	return "flows.json"
}
