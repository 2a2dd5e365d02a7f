// Package config loads the server settings from the environment with Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jason-s-yu/farkle/internal/auth"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Config is the flat environment configuration of the server and the historian.
type Config struct {
	Port int `mapstructure:"port"`

	StoreDriver      string `mapstructure:"store_driver"`
	SQLitePath       string `mapstructure:"sqlite_path"`
	DatabaseURL      string `mapstructure:"database_url"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PGHost           string `mapstructure:"pg_host"`
	PGPort           int    `mapstructure:"pg_port"`
	PGDatabase       string `mapstructure:"pg_database"`

	// RedisAddr empty disables the action queue and the leaderboard cache.
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisDB        int           `mapstructure:"redis_db"`
	QueueName      string        `mapstructure:"historian_queue_name"`
	LeaderboardTTL time.Duration `mapstructure:"leaderboard_ttl"`

	HistorianBatchSize int `mapstructure:"historian_batch_size"`
	HistorianFlushMs   int `mapstructure:"historian_flush_ms"`

	FarkleDelay time.Duration `mapstructure:"farkle_delay"`
	RoomsFile   string        `mapstructure:"rooms_file"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// TokenExpire is the raw TOKEN_EXPIRE_TIME value ("never", "0" or a duration).
	TokenExpire string `mapstructure:"token_expire_time"`
}

// Addr returns the ":port" listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// PostgresDSN prefers DATABASE_URL and falls back to the discrete PG settings.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   fmt.Sprintf("%s:%d", c.PGHost, c.PGPort),
		Path:   "/" + c.PGDatabase,
	}
	return u.String()
}

// FlushDelay is the historian flush interval.
func (c Config) FlushDelay() time.Duration {
	return time.Duration(c.HistorianFlushMs) * time.Millisecond
}

// TokenTTL parses TokenExpire. Validate has already rejected bad values.
func (c Config) TokenTTL() time.Duration {
	d, _ := auth.ParseTokenExpire(c.TokenExpire)
	return d
}

// Validate checks all configuration invariants and reports every violation at once.
func (c Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be 1-65535, got %d", c.Port))
	}
	switch c.StoreDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, "SQLITE_PATH must not be empty for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" && (c.PGHost == "" || c.PGDatabase == "") {
			errs = append(errs, "postgres driver needs DATABASE_URL or PG_HOST and PG_DATABASE")
		}
	case DriverNone:
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER must be one of [sqlite, postgres, none], got %q", c.StoreDriver))
	}
	if c.QueueName == "" {
		errs = append(errs, "HISTORIAN_QUEUE_NAME must not be empty")
	}
	if c.LeaderboardTTL < 0 {
		errs = append(errs, "LEADERBOARD_TTL must not be negative")
	}
	if c.HistorianBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("HISTORIAN_BATCH_SIZE must be >= 1, got %d", c.HistorianBatchSize))
	}
	if c.HistorianFlushMs < 1 {
		errs = append(errs, fmt.Sprintf("HISTORIAN_FLUSH_MS must be >= 1, got %d", c.HistorianFlushMs))
	}
	if c.FarkleDelay < 0 {
		errs = append(errs, "FARKLE_DELAY must not be negative")
	}
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of [trace, debug, info, warn, error], got %q", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of [text, json], got %q", c.LogFormat))
	}
	if _, err := auth.ParseTokenExpire(c.TokenExpire); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

// Load reads the configuration from environment variables over the defaults.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)

	v.SetDefault("store_driver", DriverSQLite)
	v.SetDefault("sqlite_path", "data/farkle.db")
	v.SetDefault("database_url", "")
	v.SetDefault("postgres_user", "postgres")
	v.SetDefault("postgres_password", "")
	v.SetDefault("pg_host", "localhost")
	v.SetDefault("pg_port", 5432)
	v.SetDefault("pg_database", "farkle")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("historian_queue_name", "farkle_actions")
	v.SetDefault("leaderboard_ttl", "30s")

	v.SetDefault("historian_batch_size", 20)
	v.SetDefault("historian_flush_ms", 500)

	v.SetDefault("farkle_delay", "3s")
	v.SetDefault("rooms_file", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("token_expire_time", "72h")
}
