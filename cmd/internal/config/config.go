package config

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"io/fs"
	"os"
	"sesami/cmd/internal/domain/entity"
	"sesami/cmd/internal/domain/postgres"
	"sesami/cmd/internal/domain/sqlite"
	"sesami/cmd/internal/utils/retry"
	"strconv"
	"time"
)

const DriverSQLite = "sqlite"

type Config struct {
	Host string
	Port string

	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	UpsertMaxRetries     int
	UpsertRetryBaseDelay time.Duration

	DefaultOrgID string
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads an optional .env file (missing is fine) and then the
// process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "3000"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", postgres.DriverPgx),
		DatabaseURL:    databaseURL(),
		SQLitePath:     getEnv("SQLITE_PATH", sqlite.DefaultPath),
		DefaultOrgID:   getEnv("DEFAULT_ORG_ID", entity.DefaultOrgID),
	}

	switch cfg.DatabaseDriver {
	case postgres.DriverPgx, postgres.DriverPq, DriverSQLite:
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER must be one of %s, %s, %s; got %q",
			postgres.DriverPgx, postgres.DriverPq, DriverSQLite, cfg.DatabaseDriver)
	}

	retries, err := strconv.Atoi(getEnv("UPSERT_MAX_RETRIES", strconv.Itoa(retry.DefaultMaxRetries)))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("UPSERT_MAX_RETRIES must be a non-negative integer")
	}
	cfg.UpsertMaxRetries = retries

	delay, err := time.ParseDuration(getEnv("UPSERT_RETRY_BASE_DELAY", retry.DefaultBaseDelay.String()))
	if err != nil || delay < 0 {
		return nil, fmt.Errorf("UPSERT_RETRY_BASE_DELAY must be a non-negative duration")
	}
	cfg.UpsertRetryBaseDelay = delay

	return cfg, nil
}

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		getEnv("DATABASE_USER", "postgres"),
		getEnv("DATABASE_PASS", "123"),
		getEnv("DATABASE_HOST", "localhost"),
		getEnv("DATABASE_PORT", "5432"),
		getEnv("DATABASE_NAME", "sesami"),
	)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
