package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("BCRYPT_COST", "")
	t.Setenv("SWEEP_SCHEDULE", "")

	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "/uploads", cfg.UploadURLPrefix)
	assert.Equal(t, int64(32<<20), cfg.UploadMaxBytes)
	assert.Equal(t, time.Hour, cfg.SweepGrace)
	assert.Empty(t, cfg.RedisAddr)
	assert.Nil(t, cfg.CORSOrigins)
	assert.Zero(t, cfg.RateLimitPerSecond)
	assert.Zero(t, cfg.BcryptCost)
	assert.Empty(t, cfg.SweepSchedule)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/p.db")
	t.Setenv("IMAGE_DELETE_TIMEOUT_SECONDS", "5")
	t.Setenv("SWEEP_GRACE_MINUTES", "10")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("SWEEP_SCHEDULE", "0 30 3 * * *")

	cfg, err := LoadConfig(logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "/tmp/p.db", cfg.SQLitePath)
	assert.Equal(t, 5*time.Second, cfg.DeleteTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SweepGrace)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2.5, cfg.RateLimitPerSecond)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, "0 30 3 * * *", cfg.SweepSchedule)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DBDriver:         DriverSQLite,
			SQLitePath:       "x.db",
			UploadDir:        "uploads",
			UploadURLPrefix:  "/uploads",
			UploadMaxBytes:   1,
			StoreTimeout:     time.Second,
			DeleteTimeout:    time.Second,
			SweepGrace:       time.Minute,
			SweepConcurrency: 1,
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"unknown driver":    func(c *Config) { c.DBDriver = "mysql" },
		"missing sqlite":    func(c *Config) { c.SQLitePath = " " },
		"missing host":      func(c *Config) { c.DBDriver = DriverPostgres },
		"empty upload dir":  func(c *Config) { c.UploadDir = "" },
		"relative prefix":   func(c *Config) { c.UploadURLPrefix = "uploads" },
		"zero upload bytes": func(c *Config) { c.UploadMaxBytes = 0 },
		"zero timeout":      func(c *Config) { c.DeleteTimeout = 0 },
		"zero concurrency":  func(c *Config) { c.SweepConcurrency = 0 },
		"bcrypt cost low":   func(c *Config) { c.BcryptCost = 2 },
		"negative rate":     func(c *Config) { c.RateLimitPerSecond = -1 },
		"bad schedule":      func(c *Config) { c.SweepSchedule = "sometimes" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
