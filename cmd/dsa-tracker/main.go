package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/dsa-tracker/internal/api"
	"github.com/terra-clan/dsa-tracker/internal/catalog"
	"github.com/terra-clan/dsa-tracker/internal/config"
	"github.com/terra-clan/dsa-tracker/internal/health"
	"github.com/terra-clan/dsa-tracker/internal/lock"
	"github.com/terra-clan/dsa-tracker/internal/metrics"
	"github.com/terra-clan/dsa-tracker/internal/notify"
	"github.com/terra-clan/dsa-tracker/internal/planner"
	"github.com/terra-clan/dsa-tracker/internal/progress"
	"github.com/terra-clan/dsa-tracker/internal/reminder"
	"github.com/terra-clan/dsa-tracker/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("invalid progress timezone", "error", err)
		os.Exit(1)
	}

	slog.Info("starting dsa-tracker",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
		"timezone", loc.String(),
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	m := metrics.NewManager(metrics.WithRuntimeCollectors())
	checks := health.NewRegistry()

	// Initialize repository
	var repo storage.Repository
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory storage, data is lost on restart")
		repo = storage.NewMemoryRepository()
	default:
		if cfg.Database.AutoMigrate {
			slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
			if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
				slog.Error("failed to run migrations", "error", err)
				os.Exit(1)
			}
		}

		pg, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
			MaxLifetime:  cfg.Database.MaxLifetime,
		})
		if err != nil {
			slog.Error("failed to create database repository", "error", err)
			os.Exit(1)
		}
		repo = pg
		slog.Info("database connected successfully")

		pgCheck, err := health.NewPostgresChecker(cfg.Database.DSN)
		if err != nil {
			slog.Error("failed to create postgres health check", "error", err)
			os.Exit(1)
		}
		defer pgCheck.Close()
		checks.Register(pgCheck)
	}
	defer repo.Close()

	// Per-user and scheduler locks
	var locker lock.Locker = lock.NewLocalLocker()
	var redisLocker *lock.RedisLocker
	if cfg.Redis.Enabled {
		redisLocker, err = lock.NewRedisLocker(initCtx, lock.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.LockTTL,
		})
		if err != nil {
			slog.Error("failed to connect to redis", "error", err, "address", cfg.Redis.Address)
			os.Exit(1)
		}
		defer redisLocker.Close()
		locker = redisLocker
		checks.Register(health.NewRedisChecker(redisLocker.Client()))
		slog.Info("redis locks enabled", "address", cfg.Redis.Address)
	}

	// Load problem bank
	bank := catalog.NewLoader()
	if err := bank.LoadFromFile(cfg.Catalog.Path); err != nil {
		slog.Warn("failed to load problem bank", "path", cfg.Catalog.Path, "error", err)
	}
	slog.Info("problem bank loaded", "problems", bank.Len())

	// Notifications
	hub := notify.NewHub(m)
	mailer := notify.NewMailer(notify.MailerConfig{
		Enabled:  cfg.SMTP.Enabled,
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	dispatcher := notify.NewMultiDispatcher(hub, mailer, m)

	// Domain services
	tracker := progress.NewTracker(repo, locker, bank,
		progress.WithLocation(loc),
		progress.WithMetrics(m),
	)
	tasks := planner.NewService(repo, planner.WithLocation(loc))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start reminder scheduler
	var scheduler *reminder.Scheduler
	if cfg.Scheduler.Enabled {
		opts := []reminder.Option{
			reminder.WithInterval(cfg.Scheduler.Interval),
			reminder.WithMetrics(m),
		}
		if redisLocker != nil {
			opts = append(opts, reminder.WithLocker(redisLocker))
		}
		scheduler = reminder.NewScheduler(repo, tasks, dispatcher, opts...)
		scheduler.Start(ctx)
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Dependencies{
		Repo:                 repo,
		Tracker:              tracker,
		Planner:              tasks,
		Catalog:              bank,
		Hub:                  hub,
		Health:               checks,
		Metrics:              m,
		DefaultNotifications: cfg.DefaultNotifications(),
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Stop the scheduler; an in-flight dispatch runs to completion
	if scheduler != nil {
		scheduler.Stop()
	}
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("dsa-tracker stopped")
}
