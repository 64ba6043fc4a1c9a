package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv" // .env loading for local runs
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/duo/internal/config"
	"github.com/iliyamo/duo/internal/database"
	"github.com/iliyamo/duo/internal/logging"
	"github.com/iliyamo/duo/internal/queue"
	"github.com/iliyamo/duo/internal/router"
	"github.com/iliyamo/duo/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run returns an error instead of exiting so defers execute.
func run() error {
	_ = godotenv.Load() // a missing .env is fine outside dev

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		n, err := database.Migrate(ctx, db)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("db.migrated", "driver", db.Dialect.Name(), "applied", n)
	}

	// Redis is optional; both middlewares pass through on a nil client.
	var rdb *redis.Client
	if cfg.Cache.Enabled || cfg.RateLimit.Enabled {
		if rdb = config.NewRedisClient(ctx, cfg.Redis); rdb != nil {
			defer rdb.Close()
		} else {
			logger.Warn("redis.unavailable", "addr", cfg.Redis.Addr)
		}
	}

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		pub = queue.NewAMQPPublisher(cfg.AMQPURL)
	}

	svcs, err := service.New(db, service.Options{
		Log:        logger,
		Publisher:  pub,
		StaleAfter: cfg.PresenceStaleAfter,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			logger.Warn("events.close_failed", "err", err)
		}
	}()

	if cfg.SessionReapInterval > 0 {
		go svcs.Sessions.RunReaper(ctx, cfg.SessionReapInterval)
	}
	if cfg.EventsEnabled && cfg.EventsConsumerEnabled {
		c := &queue.Consumer{URL: cfg.AMQPURL, LogDir: cfg.EventsLogDir, Log: logger}
		go func() { _ = c.Run(ctx) }()
	}

	e := router.New(router.Deps{
		Services:       svcs,
		DB:             db,
		Redis:          rdb,
		Cache:          cfg.Cache,
		RateLimit:      cfg.RateLimit,
		Log:            logger,
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        cfg.MetricsEnabled,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", cfg.Addr(), "env", cfg.Env, "driver", db.Dialect.Name())
		errCh <- e.Start(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	logger.Info("server.shutdown")
	return e.Shutdown(shutdownCtx)
}
