package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vncsmyrnk/unirea/internal/adapters/cache/redis"
	"github.com/vncsmyrnk/unirea/internal/adapters/event/kafka"
	"github.com/vncsmyrnk/unirea/internal/adapters/handler/http"
	"github.com/vncsmyrnk/unirea/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/unirea/internal/config"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
	"github.com/vncsmyrnk/unirea/internal/core/services"
	"github.com/vncsmyrnk/unirea/internal/metrics"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if err := run(cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DB.ConnString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pollMetrics := metrics.NewPollMetrics(reg, "unirea")

	var cache ports.StatsCache
	if cfg.RedisURL != "" {
		statsCache, err := redis.NewStatsCache(ctx, cfg.RedisURL, cfg.StatsCacheTTL)
		if err != nil {
			return err
		}
		defer statsCache.Close()
		cache = statsCache
		slog.Info("statistics cache enabled", "ttl", cfg.StatsCacheTTL)
	}

	var events ports.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		events = publisher
		slog.Info("poll events enabled", "topic", cfg.KafkaTopic)
	}

	handler := newHandler(db, cfg, reg, pollMetrics, cache, events)

	server := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func newHandler(
	db *sql.DB,
	cfg *config.Config,
	reg *prometheus.Registry,
	pollMetrics *metrics.PollMetrics,
	cache ports.StatsCache,
	events ports.EventPublisher,
) stdhttp.Handler {
	// Initialize Repositories
	pollRepo := postgres.NewPollRepository(db)
	responseRepo := postgres.NewResponseRepository(db)
	statsRepo := postgres.NewStatsRepository(db)
	peekRepo := postgres.NewPeekRepository(db)
	postRepo := postgres.NewPostRepository(db)
	profileRepo := postgres.NewProfileRepository(db)

	// Initialize Services
	publishSvc := services.NewPublishService(pollRepo, profileRepo, postRepo)
	unlockSvc := services.NewUnlockService(pollRepo, publishSvc, events, pollMetrics)
	pollSvc := services.NewPollService(pollRepo, profileRepo, responseRepo, peekRepo, unlockSvc)
	responseSvc := services.NewResponseService(pollRepo, responseRepo, profileRepo, unlockSvc, cache, events, pollMetrics)
	statsSvc := services.NewStatsService(pollRepo, responseRepo, profileRepo, statsRepo, peekRepo, cache, pollMetrics)

	return http.NewHandler(http.Handlers{
		Poll:     http.NewPollHandler(pollSvc),
		Response: http.NewResponseHandler(responseSvc),
		Stats:    http.NewStatsHandler(statsSvc),
	}, http.AuthMiddleware([]byte(cfg.JWTSecret)), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), cfg.AllowedOrigins)
}
