package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/atelierhq/atelier/internal/adapter/api"
	"github.com/atelierhq/atelier/internal/adapter/cache"
	"github.com/atelierhq/atelier/internal/adapter/metrics"
	"github.com/atelierhq/atelier/internal/adapter/store/mongostore"
	"github.com/atelierhq/atelier/internal/pkg/config"
	"github.com/atelierhq/atelier/internal/pkg/logger"
	"github.com/atelierhq/atelier/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	m := metrics.NewCoreMetrics(prometheus.DefaultRegisterer)

	// --- Metrics Server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metricsMux,
	}

	go func() {
		log.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Store and Cache Connections ---
	store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.DBName, log)
	if err != nil {
		log.Error("failed to connect to document store", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("failed to close document store", "error", err)
		}
	}()

	var configCache *cache.ConfigCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, tenant config will be read from the store on every request", "error", err)
		} else {
			configCache = cache.NewConfigCache(redisClient, log, cfg.ConfigCacheTTL)
		}
		defer redisClient.Close()
	}

	// --- Core Services ---
	authz := usecase.NewAuthorizer(store, configCache, log, m)
	sequences := usecase.NewSequences(store, log, m)
	audit := usecase.NewAuditLog(store, log, m)

	// --- API Server ---
	router := api.NewRouter(cfg, log, store, authz, sequences, audit)
	server := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		log.Info("starting api server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("api server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "error", err)
	}
}
