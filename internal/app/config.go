package app

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/aburayhan/cargo-erp/internal/settings"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	RateLimit         int           `envconfig:"RATE_LIMIT_PER_MIN" default:"300"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// PGDSN selects the remote store. Empty runs offline on the local copy.
	PGDSN          string        `envconfig:"PG_DSN"`
	StateKey       string        `envconfig:"STATE_KEY" default:"main_state"`
	LocalStatePath string        `envconfig:"LOCAL_STATE_PATH" default:"data/cargo.db"`
	SyncDelay      time.Duration `envconfig:"SYNC_DELAY" default:"800ms"`

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"10m"`

	GotenbergURL     string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
	ReportStorageDir string `envconfig:"REPORT_STORAGE_DIR" default:"data/reports"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"cargo.ledger.events"`

	// BackupCron schedules ledger:backup in the worker; "off" disables it.
	BackupCron        string `envconfig:"BACKUP_CRON" default:"@every 15m"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`

	BusinessName string `envconfig:"BUSINESS_NAME" default:"AbuRayhan Export"`
	Partner1     string `envconfig:"PARTNER_1" default:"Partner 1"`
	Partner2     string `envconfig:"PARTNER_2" default:"Partner 2"`
	Currency     string `envconfig:"CURRENCY" default:"USD ($)"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.LocalStatePath) == "" {
		errs = append(errs, errors.New("LOCAL_STATE_PATH must be provided"))
	}
	if strings.TrimSpace(c.StateKey) == "" {
		errs = append(errs, errors.New("STATE_KEY must be provided"))
	}
	if c.SyncDelay < 0 {
		errs = append(errs, errors.New("SYNC_DELAY must not be negative"))
	}
	if strings.EqualFold(strings.TrimSpace(c.Partner1), strings.TrimSpace(c.Partner2)) {
		errs = append(errs, errors.New("PARTNER_1 and PARTNER_2 must differ"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Offline reports whether no remote store is configured.
func (c *Config) Offline() bool {
	return c == nil || strings.TrimSpace(c.PGDSN) == ""
}

// BusinessDefaults returns the initial business profile.
func (c *Config) BusinessDefaults() settings.Defaults {
	return settings.Defaults{
		Name:     c.BusinessName,
		Partner1: c.Partner1,
		Partner2: c.Partner2,
		Currency: c.Currency,
	}
}
