package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFromViper(defaultViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 3*time.Second, cfg.FarkleDelay)
	assert.Equal(t, 30*time.Second, cfg.LeaderboardTTL)
	assert.Equal(t, "farkle_actions", cfg.QueueName)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushDelay())
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL())
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("PG_HOST", "db")
	t.Setenv("POSTGRES_USER", "farkle")
	t.Setenv("POSTGRES_PASSWORD", "s3cret")
	t.Setenv("FARKLE_DELAY", "1500ms")
	t.Setenv("TOKEN_EXPIRE_TIME", "never")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 1500*time.Millisecond, cfg.FarkleDelay)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Zero(t, cfg.TokenTTL())
	assert.Equal(t, "postgres://farkle:s3cret@db:5432/farkle", cfg.PostgresDSN())

	t.Setenv("DATABASE_URL", "postgres://elsewhere/db")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://elsewhere/db", cfg.PostgresDSN())
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	v := defaultViper()
	v.Set("port", 0)
	v.Set("store_driver", "mongo")
	v.Set("log_level", "loud")
	v.Set("token_expire_time", "soon")

	_, err := LoadFromViper(v)
	require.Error(t, err)
	for _, want := range []string{"PORT", "STORE_DRIVER", "LOG_LEVEL", "token expire"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	v := defaultViper()
	v.Set("sqlite_path", " ")
	_, err := LoadFromViper(v)
	assert.ErrorContains(t, err, "SQLITE_PATH")

	v.Set("store_driver", DriverNone)
	_, err = LoadFromViper(v)
	assert.NoError(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg, err := LoadFromViper(defaultViper())
	require.NoError(t, err)
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"

	logger := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
