package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Scraper  ScraperConfig
	JWT      JWTConfig
}

type AppConfig struct {
	AppName     string `envconfig:"APP_NAME" default:"remote-jobs"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8080"`
}

type DatabaseConfig struct {
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`

	ConnectTimeout        time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
	PoolMaxConns          int32         `envconfig:"DB_POOL_MAX_CONNS" default:"10"`
	PoolMinConns          int32         `envconfig:"DB_POOL_MIN_CONNS" default:"0"`
	PoolMaxConnLifetime   time.Duration `envconfig:"DB_POOL_MAX_CONN_LIFETIME" default:"1h"`
	PoolMaxConnIdleTime   time.Duration `envconfig:"DB_POOL_MAX_CONN_IDLE_TIME" default:"30m"`
	PoolHealthCheckPeriod time.Duration `envconfig:"DB_POOL_HEALTH_CHECK_PERIOD" default:"1m"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"true"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type ScraperConfig struct {
	Sources        []string      `envconfig:"SCRAPER_SOURCES" default:"jobicy,himalayas,weworkremotely,workingnomads"`
	RequestTimeout time.Duration `envconfig:"SCRAPER_REQUEST_TIMEOUT" default:"30s"`
	MaxRetries     int           `envconfig:"SCRAPER_MAX_RETRIES" default:"3"`
	RetryBackoff   time.Duration `envconfig:"SCRAPER_RETRY_BACKOFF" default:"1s"`
	RateLimit      time.Duration `envconfig:"SCRAPER_RATE_LIMIT" default:"2s"`
	MaxDetails     int           `envconfig:"SCRAPER_MAX_DETAILS" default:"50"`
	Workers        int           `envconfig:"SCRAPER_WORKERS" default:"4"`
	DetailsPerSec  int           `envconfig:"SCRAPER_DETAILS_PER_SECOND" default:"0"`
	Headless       bool          `envconfig:"SCRAPER_HEADLESS" default:"true"`
	StaleAfter     time.Duration `envconfig:"SCRAPER_STALE_AFTER" default:"168h"`
	Schedule       string        `envconfig:"SCRAPER_SCHEDULE"`
}

type JWTConfig struct {
	AccessSecret    string        `envconfig:"JWT_ACCESS_SECRET"`
	AccessExpiresIn time.Duration `envconfig:"JWT_ACCESS_EXPIRES_IN" default:"1h"`
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{}
	targets := []any{&cfg.App, &cfg.Database, &cfg.Redis, &cfg.Scraper, &cfg.JWT}
	for _, t := range targets {
		if err := envconfig.Process("", t); err != nil {
			return Config{}, err
		}
	}

	cfg.Scraper.Sources = cleanList(cfg.Scraper.Sources)

	if err := cfg.App.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c AppConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.AppName) == "" {
		missing = append(missing, "APP_NAME")
	}
	if strings.TrimSpace(c.HTTPPort) == "" {
		missing = append(missing, "HTTP_PORT")
	}
	return missingErr(missing)
}

// Validate is called by anything that needs a live Postgres connection.
func (c DatabaseConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.DBHost) == "" {
		missing = append(missing, "DB_HOST")
	}
	if strings.TrimSpace(c.DBName) == "" {
		missing = append(missing, "DB_NAME")
	}
	if strings.TrimSpace(c.DBUser) == "" {
		missing = append(missing, "DB_USER")
	}
	return missingErr(missing)
}

func (c JWTConfig) Validate() error {
	if strings.TrimSpace(c.AccessSecret) == "" {
		return missingErr([]string{"JWT_ACCESS_SECRET"})
	}
	return nil
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

func IsMissingRequired(err error) bool {
	return errors.Is(err, errMissingRequiredEnv)
}

func missingErr(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
