package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/catalog.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	// LogFile additionally writes JSON logs to a rotated file.
	LogFile string `env:"LOG_FILE"`

	// RedisURL enables the catalog cache when set.
	RedisURL        string        `env:"REDIS_URL"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`

	TotalRounds     int           `env:"TOTAL_ROUNDS" envDefault:"3"`
	RoundSeconds    int           `env:"ROUND_SECONDS" envDefault:"42"`
	TransitionDelay time.Duration `env:"TRANSITION_DELAY" envDefault:"2s"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"30m"`

	SeedDemo bool `env:"SEED_DEMO" envDefault:"true"`
}

// Load reads the environment, after applying the given .env files (".env" when
// none are named). Missing files are ignored; variables already set win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.TotalRounds < 1:
		return fmt.Errorf("TOTAL_ROUNDS must be positive, got %d", c.TotalRounds)
	case c.RoundSeconds < 1:
		return fmt.Errorf("ROUND_SECONDS must be positive, got %d", c.RoundSeconds)
	case c.TransitionDelay < 0:
		return fmt.Errorf("TRANSITION_DELAY must not be negative, got %s", c.TransitionDelay)
	}
	return nil
}
