package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/portfolio-backend/internal/data/db"
	"github.com/yungbote/portfolio-backend/internal/platform/envutil"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTPAddr      string
	LogMode       string
	ShutdownGrace time.Duration

	DBDriver   string
	Postgres   db.PostgresConfig
	SQLitePath string

	UploadDir       string
	UploadURLPrefix string
	UploadMaxBytes  int64
	StoreTimeout    time.Duration
	DeleteTimeout   time.Duration

	// Empty keeps the in-process project lock.
	RedisAddr    string
	RedisLockTTL time.Duration

	SweepGrace       time.Duration
	SweepConcurrency int

	// Zero selects bcrypt.DefaultCost.
	BcryptCost int

	RateLimitPerSecond float64
	RateLimitBurst     int

	// Cron spec (with seconds) for the in-process orphan sweep; empty disables it.
	SweepSchedule string

	CORSOrigins []string
	ServiceName string
}

// LoadConfig reads a .env file when present and then the process environment.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && log != nil {
		log.Debug("No .env file loaded, using process environment")
	}
	cfg := Config{
		HTTPAddr:      envutil.String("HTTP_ADDR", ":8080"),
		LogMode:       envutil.String("LOG_MODE", "development"),
		ShutdownGrace: envutil.Seconds("SHUTDOWN_GRACE_SECONDS", 15*time.Second),

		DBDriver: strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres)),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "portfolio"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		SQLitePath: envutil.String("SQLITE_PATH", "portfolio.db"),

		UploadDir:       envutil.String("UPLOAD_DIR", "./uploads"),
		UploadURLPrefix: envutil.String("UPLOAD_URL_PREFIX", "/uploads"),
		UploadMaxBytes:  int64(envutil.Int("UPLOAD_MAX_BYTES", 32<<20)),
		StoreTimeout:    envutil.Seconds("IMAGE_STORE_TIMEOUT_SECONDS", 2*time.Minute),
		DeleteTimeout:   envutil.Seconds("IMAGE_DELETE_TIMEOUT_SECONDS", 30*time.Second),

		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisLockTTL: envutil.Seconds("REDIS_LOCK_TTL_SECONDS", 30*time.Second),

		SweepGrace:       time.Duration(envutil.Int("SWEEP_GRACE_MINUTES", 60)) * time.Minute,
		SweepConcurrency: envutil.Int("SWEEP_CONCURRENCY", 4),
		SweepSchedule:    envutil.String("SWEEP_SCHEDULE", ""),

		RateLimitPerSecond: envutil.Float("RATE_LIMIT_RPS", 0),
		RateLimitBurst:     envutil.Int("RATE_LIMIT_BURST", 20),

		BcryptCost: envutil.Int("BCRYPT_COST", 0),

		CORSOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "portfolio-backend"),
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.Postgres.Host) == "" {
			return fmt.Errorf("POSTGRES_HOST is required when DB_DRIVER=postgres")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want %s or %s)", c.DBDriver, DriverPostgres, DriverSQLite)
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	if !strings.HasPrefix(c.UploadURLPrefix, "/") {
		return fmt.Errorf("UPLOAD_URL_PREFIX must start with /")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if c.StoreTimeout <= 0 || c.DeleteTimeout <= 0 {
		return fmt.Errorf("image store timeouts must be positive")
	}
	if c.SweepGrace <= 0 || c.SweepConcurrency <= 0 {
		return fmt.Errorf("sweep grace and concurrency must be positive")
	}
	if c.RateLimitPerSecond < 0 || (c.RateLimitPerSecond > 0 && c.RateLimitBurst < 1) {
		return fmt.Errorf("RATE_LIMIT_RPS must be non-negative with a positive RATE_LIMIT_BURST")
	}
	if c.SweepSchedule != "" {
		if _, err := sweepScheduleParser.Parse(c.SweepSchedule); err != nil {
			return fmt.Errorf("SWEEP_SCHEDULE: %w", err)
		}
	}
	if c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}
