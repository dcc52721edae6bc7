package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/pswdo-albay/aics/internal/ledger"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout   time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"10s"`

	LogFormat string     `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  slog.Level `envconfig:"LOG_LEVEL" default:"INFO"`

	// PGDSN enables the audit sink. Empty disables it.
	PGDSN        string `envconfig:"PG_DSN"`
	PGMaxConns   int32  `envconfig:"PG_MAX_CONNS" default:"4"`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisEnabled bool   `envconfig:"REDIS_ENABLED" default:"true"`

	IdempotencyTTL    time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	RateLimitPerMin   int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`
	WorkerConcurrency int           `envconfig:"WORKER_CONCURRENCY" default:"5"`

	MainBudgetAllocated int64           `envconfig:"MAIN_BUDGET_ALLOCATED" default:"2000000"`
	CAName              string          `envconfig:"CA_NAME" default:"Regular Cash Advance"`
	CACeiling           int64           `envconfig:"CA_CEILING" default:"500000"`
	CAThresholdPercent  decimal.Decimal `envconfig:"CA_THRESHOLD_PERCENT" default:"0.20"`
	CAReplenishTo       int64           `envconfig:"CA_REPLENISH_TO" default:"400000"`
	ControlSeqStart     int             `envconfig:"AICS_CONTROL_SEQ_START" default:"1"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.LedgerConfig().Validate(); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin < 0 {
		return nil, errors.New("rate limit must not be negative")
	}
	if cfg.ControlSeqStart < 1 {
		return nil, fmt.Errorf("control sequence start must be at least 1, got %d", cfg.ControlSeqStart)
	}
	return &cfg, nil
}

// LedgerConfig returns the budget configuration.
func (c *Config) LedgerConfig() ledger.Config {
	return ledger.Config{
		MainAllocated:      c.MainBudgetAllocated,
		CAName:             c.CAName,
		CACeiling:          c.CACeiling,
		CAThresholdPercent: c.CAThresholdPercent,
		CAReplenishTo:      c.CAReplenishTo,
	}
}

// AuditEnabled reports whether a Postgres audit sink is configured.
func (c *Config) AuditEnabled() bool {
	return c != nil && c.PGDSN != ""
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
