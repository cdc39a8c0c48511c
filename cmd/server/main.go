package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/warungmie/api/internal/cache"
	"github.com/warungmie/api/internal/config"
	"github.com/warungmie/api/internal/database"
	"github.com/warungmie/api/internal/router"
	"github.com/warungmie/api/internal/service"
	"github.com/warungmie/api/internal/ws"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 30 * time.Second
	queueCacheTTL   = 3 * time.Second
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.MigrationsDir, cfg.DatabaseURL); err != nil {
		logrus.Panicf("failed to run migrations: %v", err)
	}
	logrus.Info("migrations applied")

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Panicf("failed to create connection pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logrus.Panicf("failed to reach database: %v", err)
	}
	queries := database.New(pool)

	// The queue cache is optional; without Redis every read hits Postgres.
	var queueCache cache.QueueCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logrus.Warnf("redis unreachable at %s, queue cache disabled: %v", cfg.RedisAddr, err)
		} else {
			queueCache = cache.NewRedisQueueCache(client, queueCacheTTL)
			logrus.Infof("queue cache enabled via redis at %s", cfg.RedisAddr)
		}
	}

	hub := ws.NewHub()
	go hub.Run()

	r, services := router.New(cfg, queries, pool, hub, queueCache)

	sweeper := service.NewSweeper(services.Orders, sweepInterval)
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 30 * time.Second,
	}

	go func() {
		logrus.Infof("starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Panicf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
	logrus.Info("server stopped")
}
