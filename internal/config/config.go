// Package config содержит логику чтения конфигурации витрины Edelweiss.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	AuthServiceURL string `env:"AUTH_SERVICE_URL"`
	AuthAPIKey     string `env:"AUTH_API_KEY"`
	JWTSecret      string `env:"JWT_SECRET"`
	RedisAddress   string `env:"REDIS_ADDRESS"`
	RedisPassword  string `env:"REDIS_PASSWORD"`

	ShippingFee decimal.Decimal `env:"SHIPPING_FEE" envDefault:"50"`
	AddonFee    decimal.Decimal `env:"ADDON_FEE" envDefault:"0"`

	AuthRatePerMinute float64       `env:"AUTH_RATE_PER_MINUTE" envDefault:"30"`
	AuthRateBurst     int           `env:"AUTH_RATE_BURST" envDefault:"10"`
	JanitorInterval   time.Duration `env:"JANITOR_INTERVAL" envDefault:"1m"`
	StateTTL          time.Duration `env:"STATE_TTL" envDefault:"30m"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := map[*string]string{
		&cfg.RunAddress:     cfg.RunAddress,
		&cfg.DatabaseURI:    cfg.DatabaseURI,
		&cfg.AuthServiceURL: cfg.AuthServiceURL,
		&cfg.AuthAPIKey:     cfg.AuthAPIKey,
		&cfg.JWTSecret:      cfg.JWTSecret,
		&cfg.RedisAddress:   cfg.RedisAddress,
	}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthServiceURL, "u", "", "auth service base URL")
	flag.StringVar(&cfg.AuthAPIKey, "k", "", "auth service API key")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret used to verify access tokens")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for the shared resend cooldown")

	flag.Parse()

	for field, v := range fromEnv {
		if v != "" {
			*field = v
		}
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.ShippingFee.IsNegative() || cfg.AddonFee.IsNegative() {
		return nil, fmt.Errorf("fees must not be negative")
	}

	return cfg, nil
}
