// Command catalog-import loads a map and spot manifest into the catalog
// database. Map image sizes missing from the manifest are probed first.
//
//	catalog-import -manifest spots.json -images ./public
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/spotguess/internal/catalog"
	"github.com/playperu/spotguess/internal/config"
	"github.com/playperu/spotguess/internal/database"
	"github.com/playperu/spotguess/internal/migrations"
)

type options struct {
	manifest string
	images   string
	out      string
	dbPath   string
	redisURL string
	dryRun   bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var o options
	fs := flag.NewFlagSet("catalog-import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.manifest, "manifest", "", "manifest JSON file, - for stdin")
	fs.StringVar(&o.images, "images", ".", "directory map image paths are relative to")
	fs.StringVar(&o.out, "o", "", "also write the manifest with probed sizes to this file")
	fs.StringVar(&o.dbPath, "db", cfg.DBPath, "catalog database")
	fs.StringVar(&o.redisURL, "redis", cfg.RedisURL, "catalog cache to invalidate after the import")
	fs.BoolVar(&o.dryRun, "n", false, "validate and probe only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if o.manifest == "" {
		fs.Usage()
		return fmt.Errorf("-manifest is required")
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return importManifest(ctx, logger, o)
}

func importManifest(ctx context.Context, logger *slog.Logger, o options) error {
	m, err := readManifest(o.manifest)
	if err != nil {
		return err
	}
	logger.Info("manifest read", "maps", len(m.Maps), "spots", len(m.Spots))

	prober := &catalog.Prober{
		Root:   o.images,
		Client: &http.Client{Timeout: 30 * time.Second},
		Logger: logger,
	}
	if n := prober.FillSizes(ctx, &m); n > 0 {
		logger.Info("map sizes probed", "count", n)
	}

	if o.out != "" {
		if err := writeManifest(o.out, m); err != nil {
			return err
		}
	}
	if o.dryRun {
		return m.Validate()
	}

	db, err := database.Open(ctx, o.dbPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.RunContext(ctx, db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	store := catalog.NewStore(db)
	if err := store.Import(ctx, m); err != nil {
		return fmt.Errorf("importing: %w", err)
	}
	maps, spots, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	logger.Info("catalog imported", "path", o.dbPath, "maps", maps, "spots", spots)

	if o.redisURL != "" {
		return invalidateCache(ctx, logger, o.redisURL, store)
	}
	return nil
}

func readManifest(path string) (catalog.Manifest, error) {
	if path == "-" {
		return catalog.DecodeManifest(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return catalog.Manifest{}, err
	}
	defer f.Close()

	m, err := catalog.DecodeManifest(f)
	if err != nil {
		return catalog.Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func writeManifest(path string, m catalog.Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := catalog.EncodeManifest(f, m); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func invalidateCache(ctx context.Context, logger *slog.Logger, rawURL string, store *catalog.Store) error {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	if err := catalog.NewCache(rdb, store, 0, logger).Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidating catalog cache: %w", err)
	}
	logger.Info("catalog cache invalidated")
	return nil
}
