package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port            int    `env:"PORT" envDefault:"8080"`
	StoreDriver     string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL     string `env:"DATABASE_URL"`
	RedisURL        string `env:"REDIS_URL,required"`
	QRScheme        string `env:"QR_SCHEME" envDefault:"unilocator"`
	CodeTTLHours    int    `env:"CODE_TTL_HOURS" envDefault:"24"`
	RateLimitPerMin int    `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case "memory":
		if isProduction {
			log.Warn().Msg("STORE_DRIVER=memory in production: all pairing state is lost on restart")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (expected postgres or memory)", c.StoreDriver)
	}

	if c.CodeTTLHours <= 0 {
		return fmt.Errorf("CODE_TTL_HOURS must be positive")
	}

	if isProduction && strings.HasPrefix(c.RedisURL, "redis://") {
		log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
