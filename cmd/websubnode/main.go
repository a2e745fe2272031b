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
	websubhandler "rssflow/internal/handler/http/websub"
	"rssflow/internal/infra/db"
	"rssflow/internal/nodesvc"
	"rssflow/internal/observability/logging"
	"rssflow/internal/resilience/outboundlimit"
	"rssflow/internal/websub"
	"rssflow/internal/websub/postgres"
	pkgconfig "rssflow/pkg/config"
	"rssflow/pkg/ratelimit"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load("websub")
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.PublicURL == "" {
		logger.Error("PUBLIC_URL must be set for the websub subscriber")
		os.Exit(1)
	}
	if cfg.PostgresURL != "" {
		os.Setenv("DATABASE_URL", cfg.PostgresURL)
	}

	sqlDB := db.Open()
	defer sqlDB.Close()
	if err := db.MigrateUp(sqlDB); err != nil {
		logger.Error("failed to migrate websub subscription store", slog.Any("error", err))
		os.Exit(1)
	}
	repo := postgres.NewSubscriptionRepo(sqlDB)

	rlCfg, err := pkgconfig.LoadRateLimitConfig()
	if err != nil {
		logger.Error("failed to load outbound rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}
	httpClient := &http.Client{
		Transport: outboundlimit.New(rlCfg, ratelimit.NewPrometheusMetrics(), nil),
		Timeout:   30 * time.Second,
	}

	pool := nodesvc.NewPool()
	defer pool.Close()

	sub := websub.New(repo, httpClient, cfg.PublicURL, pool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sub.LoadFromStore(ctx); err != nil {
		logger.Error("failed to load persisted subscriptions", slog.Any("error", err))
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.GRPCPort)))
	if err != nil {
		logger.Error("failed to listen on grpc port", slog.Any("error", err))
		os.Exit(1)
	}
	svc := websub.NewService(sub)
	grpcSrv := websub.Serve(svc, lis)

	h := websubhandler.New(sub)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /websub/{uuid}", h.Verify)
	mux.HandleFunc("POST /websub/{uuid}", h.Push)
	mux.HandleFunc("GET /websub/check", h.Check)
	mux.Handle("GET /health", &hhttp.HealthHandler{DB: sqlDB, Version: "dev"})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: sqlDB})
	mux.Handle("GET /live", &hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.HTTPPort)),
		Handler:           hhttp.MetricsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("websub node http server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	logger.Info("websub node started",
		slog.String("grpc_addr", lis.Addr().String()),
		slog.String("http_addr", httpSrv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down websub node...")
	cancel()
	grpcSrv.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("websub node http shutdown failed", slog.Any("error", err))
	}
	logger.Info("websub node stopped")
}
