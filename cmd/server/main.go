package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/spotguess/internal/catalog"
	"github.com/playperu/spotguess/internal/config"
	"github.com/playperu/spotguess/internal/database"
	"github.com/playperu/spotguess/internal/handler/health"
	"github.com/playperu/spotguess/internal/migrations"
	"github.com/playperu/spotguess/internal/server"
	"github.com/playperu/spotguess/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := newLogger(stdout, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer closeLog()

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.RunContext(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	store := catalog.NewStore(db)
	if cfg.SeedDemo {
		if err := catalog.SeedDemo(ctx, logger, store); err != nil {
			return fmt.Errorf("seeding catalog: %w", err)
		}
	}

	required := map[string]health.Checker{"sqlite": dbChecker{db}}
	optional := map[string]health.Checker{}
	var src catalog.Source = store

	// --- Redis ---
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		src = catalog.NewCache(rdb, store, cfg.CatalogCacheTTL, logger)
		optional["redis"] = redisChecker{rdb}
	}

	// --- Sessions ---
	broker := server.NewBroker()
	sessions := server.NewRegistry(server.RegistryConfig{
		Catalog: src,
		Broker:  broker,
		Logger:  logger,
		Session: session.Options{
			TransitionDelay: cfg.TransitionDelay,
		},
		TotalRounds:  cfg.TotalRounds,
		RoundSeconds: cfg.RoundSeconds,
	})

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, server.Deps{
		Logger:   logger,
		Sessions: sessions,
		Broker:   broker,
		Catalog:  src,
		Required: required,
		Optional: optional,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return sessions.Run(gctx, cfg.SessionTTL, time.Minute)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
