package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/agentspeak/internal/action"
	"github.com/Harshitk-cp/agentspeak/internal/api"
	"github.com/Harshitk-cp/agentspeak/internal/config"
	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/metrics"
	"github.com/Harshitk-cp/agentspeak/internal/service"
	"github.com/Harshitk-cp/agentspeak/internal/store"
)

// backend bundles the stores chosen by STORAGE_BACKEND.
type backend struct {
	agents  domain.AgentStore
	storage store.Factory
	health  api.HealthCheck
	close   func()
}

func openBackend(ctx context.Context, logger *zap.Logger) (*backend, error) {
	switch config.StorageBackend() {
	case "memory":
		return &backend{
			agents:  store.NewMemoryAgentStore(),
			storage: store.MemoryFactory(),
			close:   func() {},
		}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr()})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", config.RedisAddr()))
		return &backend{
			agents:  store.NewMemoryAgentStore(),
			storage: store.RedisFactory(client),
			health:  func(ctx context.Context) error { return client.Ping(ctx).Err() },
			close:   func() { _ = client.Close() },
		}, nil

	case "postgres":
		dbURL := config.DatabaseURL()
		if dbURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if err := store.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("connected to database")
		return &backend{
			agents:  store.NewAgentStore(pool),
			storage: store.PostgresFactory(pool),
			health:  pool.Ping,
			close:   pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", config.StorageBackend())
}

func main() {
	if err := config.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := config.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	agentCfg, err := config.AgentConfig()
	if err != nil {
		logger.Fatal("invalid engine config", zap.Error(err))
	}

	ctx := context.Background()

	be, err := openBackend(ctx, logger)
	if err != nil {
		logger.Fatal("failed to open storage backend", zap.Error(err))
	}
	defer be.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector("agentspeak", reg)

	agents := service.NewAgentService(be.agents, be.storage, action.Builtins(logger), agentCfg, logger)
	agents.SetObserver(collector)

	restored, err := agents.Restore(ctx)
	if err != nil {
		logger.Fatal("failed to restore agents", zap.Error(err))
	}
	logger.Info("agents restored", zap.Int("count", restored))

	if dir := config.ProgramsDir(); dir != "" {
		created, err := agents.Preload(ctx, dir)
		if err != nil {
			logger.Fatal("failed to preload programs", zap.String("dir", dir), zap.Error(err))
		}
		logger.Info("programs preloaded", zap.String("dir", dir), zap.Int("count", created))
	}

	scheduler := service.NewSchedulerService(agents, logger)
	scheduler.SetInterval(config.SchedulerInterval())
	scheduler.SetSteps(config.SchedulerSteps())

	app := api.NewApp(agents, api.Options{
		APIKey:         config.APIKey(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
		Gatherer:       reg,
		Metrics:        collector,
		Health:         be.health,
	}, logger)
	defer app.Close()

	scheduler.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("storage", config.StorageBackend()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
