package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"pricewatch/internal/events"
	"pricewatch/internal/logger"
	"pricewatch/internal/quote/ratelimit"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/store"
)

const EnvDevelopment = "development"

type Server struct {
	Port              string `mapstructure:"port" json:"port"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec" json:"request_timeout_sec"`
	ShutdownGraceSec  int    `mapstructure:"shutdown_grace_sec" json:"shutdown_grace_sec"`
}

type Finnhub struct {
	Token      string `mapstructure:"token" json:"-"`
	BaseURL    string `mapstructure:"base_url" json:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" json:"timeout_sec"`
	// MaxRequestsPerMinute throttles the HTTP read path; 0 disables it.
	MaxRequestsPerMinute int `mapstructure:"max_requests_per_minute" json:"max_requests_per_minute"`
	Burst                int `mapstructure:"burst" json:"burst"`
}

type Batch struct {
	Schedule       string `mapstructure:"schedule" json:"schedule"`
	CallsPerSecond int    `mapstructure:"calls_per_second" json:"calls_per_second"`
}

type Config struct {
	Env      string                `mapstructure:"env" json:"env"`
	Server   Server                `mapstructure:"server" json:"server"`
	Finnhub  Finnhub               `mapstructure:"finnhub" json:"finnhub"`
	Batch    Batch                 `mapstructure:"batch" json:"batch"`
	Database store.Config          `mapstructure:"database" json:"database"`
	Redis    scheduler.RedisConfig `mapstructure:"redis" json:"redis"`
	Kafka    events.Config         `mapstructure:"kafka" json:"kafka"`
	Log      logger.Config         `mapstructure:"log" json:"log"`
}

func Default() Config {
	return Config{
		Env:     "production",
		Server:  Server{Port: "8080", RequestTimeoutSec: 10, ShutdownGraceSec: 30},
		Finnhub: Finnhub{BaseURL: "https://finnhub.io/api/v1", TimeoutSec: 10, MaxRequestsPerMinute: 60, Burst: 10},
		Batch: Batch{
			Schedule:       scheduler.DefaultSchedule,
			CallsPerSecond: ratelimit.DefaultCallsPerSecond,
		},
		Database: store.Config{
			Driver:             "memory",
			Host:               "localhost",
			Port:               5432,
			User:               "pricewatch",
			Database:           "pricewatch",
			Schema:             "public",
			SSLMode:            "disable",
			MaxOpenConns:       10,
			MaxIdleConns:       2,
			ConnMaxLifetimeSec: 300,
			SlowQueryMillis:    200,
		},
		Redis: scheduler.RedisConfig{LockKey: scheduler.DefaultLockKey, LockTTL: 300},
		Kafka: events.Config{Topic: events.DefaultTopic, MaxAttempts: 3, WriteTimeoutMs: 5000},
		Log: logger.Config{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			FilePath:   "logs/pricewatch.log",
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"env":                             "APP_ENV",
	"server.port":                     "PORT",
	"server.request_timeout_sec":      "REQUEST_TIMEOUT_SEC",
	"finnhub.token":                   "FINNHUB_API_TOKEN",
	"finnhub.base_url":                "FINNHUB_BASE_URL",
	"finnhub.timeout_sec":             "FINNHUB_TIMEOUT_SEC",
	"finnhub.max_requests_per_minute": "FINNHUB_MAX_RPM",
	"finnhub.burst":                   "FINNHUB_BURST",
	"batch.schedule":                  "BATCH_SCHEDULE",
	"batch.calls_per_second":          "BATCH_CALLS_PER_SECOND",
	"database.driver":                 "DB_DRIVER",
	"database.host":                   "DB_HOST",
	"database.port":                   "DB_PORT",
	"database.user":                   "DB_USER",
	"database.password":               "DB_PASSWORD",
	"database.database":               "DB_NAME",
	"database.schema":                 "DB_SCHEMA",
	"database.ssl_mode":               "DB_SSL_MODE",
	"redis.addr":                      "REDIS_ADDR",
	"redis.password":                  "REDIS_PASSWORD",
	"redis.db":                        "REDIS_DB",
	"kafka.brokers":                   "KAFKA_BROKERS",
	"kafka.topic":                     "KAFKA_TOPIC",
	"log.level":                       "LOG_LEVEL",
	"log.format":                      "LOG_FORMAT",
	"log.output":                      "LOG_OUTPUT",
	"log.file_path":                   "LOG_FILE",
}

// Load reads JSON config from path. If path is empty, config.json is used when present;
// a missing file means defaults. Environment variables override the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Default(), fmt.Errorf("read config: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Default(), fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	if cfg.IsDevelopment() {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("env", d.Env)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout_sec", d.Server.RequestTimeoutSec)
	v.SetDefault("server.shutdown_grace_sec", d.Server.ShutdownGraceSec)

	v.SetDefault("finnhub.base_url", d.Finnhub.BaseURL)
	v.SetDefault("finnhub.timeout_sec", d.Finnhub.TimeoutSec)
	v.SetDefault("finnhub.max_requests_per_minute", d.Finnhub.MaxRequestsPerMinute)
	v.SetDefault("finnhub.burst", d.Finnhub.Burst)

	v.SetDefault("batch.schedule", d.Batch.Schedule)
	v.SetDefault("batch.calls_per_second", d.Batch.CallsPerSecond)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.database", d.Database.Database)
	v.SetDefault("database.schema", d.Database.Schema)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime_sec", d.Database.ConnMaxLifetimeSec)
	v.SetDefault("database.slow_query_ms", d.Database.SlowQueryMillis)

	v.SetDefault("redis.lock_key", d.Redis.LockKey)
	v.SetDefault("redis.lock_ttl_sec", d.Redis.LockTTL)

	v.SetDefault("kafka.topic", d.Kafka.Topic)
	v.SetDefault("kafka.max_attempts", d.Kafka.MaxAttempts)
	v.SetDefault("kafka.write_timeout_ms", d.Kafka.WriteTimeoutMs)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Batch.Schedule) == "" {
		errs = append(errs, errors.New("batch.schedule is required"))
	}
	if c.Batch.CallsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("batch.calls_per_second must be positive, got %d", c.Batch.CallsPerSecond))
	}
	switch c.Database.Driver {
	case "memory", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	return errors.Join(errs...)
}
