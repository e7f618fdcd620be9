package config

import (
	"time"
)

// Config represents the complete configuration for the Lazo notification
// service. It provides type-safe access to all configuration values with
// validation.
type Config struct {
	Redis    RedisConfig    `koanf:"redis"    validate:"required"`
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Notify   NotifyConfig   `koanf:"notify"   validate:"required"`
	Runtime  RuntimeConfig  `koanf:"runtime"  validate:"required"`
}

// RedisConfig contains change-feed transport configuration.
type RedisConfig struct {
	Addr     string `koanf:"addr"     validate:"required" env:"REDIS_ADDR"`
	Password string `koanf:"password"                     env:"REDIS_PASSWORD"`
	DB       int    `koanf:"db"       validate:"min=0"    env:"REDIS_DB"`
}

// DatabaseConfig contains database connection configuration.
type DatabaseConfig struct {
	ConnString string `koanf:"conn_string" env:"DB_CONN_STRING"`
	Host       string `koanf:"host"        env:"DB_HOST"`
	Port       string `koanf:"port"        env:"DB_PORT"`
	User       string `koanf:"user"        env:"DB_USER"`
	Password   string `koanf:"password"    env:"DB_PASSWORD"`
	DBName     string `koanf:"name"        env:"DB_NAME"`
	SSLMode    string `koanf:"ssl_mode"    env:"DB_SSL_MODE"`
	Migrate    bool   `koanf:"migrate"     env:"DB_MIGRATE"`
}

// NotifyConfig tunes the notification delivery pipeline.
type NotifyConfig struct {
	TopicPrefix   string        `koanf:"topic_prefix"   validate:"required"  env:"NOTIFY_TOPIC_PREFIX"`
	AckTimeout    time.Duration `koanf:"ack_timeout"    validate:"min=1s"    env:"NOTIFY_ACK_TIMEOUT"`
	BackoffBase   time.Duration `koanf:"backoff_base"   validate:"min=1ms"   env:"NOTIFY_BACKOFF_BASE"`
	BackoffCap    time.Duration `koanf:"backoff_cap"    validate:"min=1ms"   env:"NOTIFY_BACKOFF_CAP"`
	MaxAttempts   int           `koanf:"max_attempts"   validate:"min=0"     env:"NOTIFY_MAX_ATTEMPTS"`
	HistoryLimit  int           `koanf:"history_limit"  validate:"min=1"     env:"NOTIFY_HISTORY_LIMIT"`
	DeliveryQueue int           `koanf:"delivery_queue" validate:"min=1"     env:"NOTIFY_DELIVERY_QUEUE"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production" env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"          env:"RUNTIME_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                    env:"RUNTIME_LOG_JSON"`
}

// Default returns the baseline configuration before environment overrides.
func Default() *Config {
	return &Config{
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Database: DatabaseConfig{
			Host:    "127.0.0.1",
			Port:    "5432",
			User:    "lazo",
			DBName:  "lazo",
			SSLMode: "disable",
		},
		Notify: NotifyConfig{
			TopicPrefix:   "notifications",
			AckTimeout:    60 * time.Second,
			BackoffBase:   2 * time.Second,
			BackoffCap:    30 * time.Second,
			MaxAttempts:   0,
			HistoryLimit:  100,
			DeliveryQueue: 100,
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
	}
}
