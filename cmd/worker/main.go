package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-offers/internal/app"
	"github.com/noah-isme/backend-offers/internal/config"
	"github.com/noah-isme/backend-offers/internal/lock"
	"github.com/noah-isme/backend-offers/internal/obs"
	"github.com/noah-isme/backend-offers/internal/queue"
	"github.com/noah-isme/backend-offers/internal/rules"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := app.InitTracing(ctx, cfg, "offers-worker", logger)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Open(openCtx, cfg, "offers-worker", logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer deps.Close()

	redisOpt, err := app.TaskRedisOpt(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("task queue")
	}

	applier := rules.NewApplier(rules.ApplierConfig{
		Tx:       deps.Store,
		Locker:   &lock.Locker{R: deps.Redis},
		LockTTL:  cfg.CartLockTTL,
		LockWait: cfg.CartLockWait,
		Logger:   logger,
	})

	srv := queue.NewServer(redisOpt, queue.ServerConfig{
		Concurrency: cfg.WorkerConcurrency,
		RetryBase:   500 * time.Millisecond,
		RetryJitter: 0.2,
		Logger:      logger,
	})

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	go queue.WatchDepth(ctx, inspector, queue.DefaultQueue, 15*time.Second, logger)

	if err := srv.Start(queue.NewMux(queue.RepriceHandler{Applier: applier, Logger: logger})); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker started")

	var metricsSrv *http.Server
	if cfg.MetricsEnabled {
		metricsSrv = serveMetrics(envOrDefault("WORKER_METRICS_ADDR", ":9091"), logger)
	}

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

// serveMetrics exposes the worker's Prometheus registry; the worker has no
// other HTTP surface.
func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("worker metrics listener")
		}
	}()
	return srv
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
