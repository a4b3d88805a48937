package config

import (
	"strings"
	"time"

	"farmoracle-backend/internal/infrastructure/eventbus"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string // postgres:// URL or SQLite path
	RedisURL            string // optional; enables the event stream and request stats
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	LogLevel            string
	LogFormat           string // console or json
	EventStream         string
	EventChannel        string
	RelayInterval       time.Duration
	RelayBatchSize      int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_URL", "farmoracle.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("EVENT_STREAM", eventbus.DefaultStream)
	v.SetDefault("EVENT_CHANNEL", eventbus.DefaultChannel)
	v.SetDefault("RELAY_INTERVAL", "2s")
	v.SetDefault("RELAY_BATCH_SIZE", 100)
	v.SetDefault("READ_TIMEOUT", "10s")
	v.SetDefault("WRITE_TIMEOUT", "10s")

	env := v.GetString("APP_ENV")
	format := v.GetString("LOG_FORMAT")
	if format == "" {
		format = "console"
		if env == "production" {
			format = "json"
		}
	}

	return &Config{
		Env:                 env,
		Port:                v.GetString("PORT"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		RedisURL:            strings.TrimSpace(v.GetString("REDIS_URL")),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           format,
		EventStream:         v.GetString("EVENT_STREAM"),
		EventChannel:        v.GetString("EVENT_CHANNEL"),
		RelayInterval:       v.GetDuration("RELAY_INTERVAL"),
		RelayBatchSize:      v.GetInt("RELAY_BATCH_SIZE"),
		ReadTimeout:         v.GetDuration("READ_TIMEOUT"),
		WriteTimeout:        v.GetDuration("WRITE_TIMEOUT"),
	}, nil
}
