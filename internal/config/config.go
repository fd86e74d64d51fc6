// Package config loads daybook settings from DAYBOOK_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "DAYBOOK"

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	HolidayNager  = "nager"
	HolidayGoogle = "google"
)

// Config holds all runtime settings.
type Config struct {
	Addr      string `envconfig:"ADDR" default:":8080"`
	StaticDir string `envconfig:"STATIC_DIR" default:"web/dist"`

	Store         string `envconfig:"STORE" default:"sqlite"`
	DBPath        string `envconfig:"DB_PATH" default:"data/daybook.db"`
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"daybook"`

	JWTSecret     string        `envconfig:"JWT_SECRET"`
	AccessTTL     time.Duration `envconfig:"JWT_ACCESS_TTL" default:"15m"`
	RefreshTTL    time.Duration `envconfig:"JWT_REFRESH_TTL" default:"168h"`
	SecureCookies bool          `envconfig:"SECURE_COOKIES" default:"true"`
	CORSOrigin    string        `envconfig:"CORS_ORIGIN" default:"http://localhost:5173"`

	HolidaySource   string        `envconfig:"HOLIDAY_SOURCE" default:"nager"`
	NagerBaseURL    string        `envconfig:"NAGER_BASE_URL" default:"https://date.nager.at"`
	GoogleAPIKey    string        `envconfig:"GOOGLE_API_KEY"`
	HolidayCacheTTL time.Duration `envconfig:"HOLIDAY_CACHE_TTL" default:"24h"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"daybook.tasks"`

	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load reads the environment. It does not validate.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(Prefix, &c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.HolidaySource = strings.ToLower(strings.TrimSpace(c.HolidaySource))
	return &c, nil
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return &ConfigError{Field: "addr", Message: "listen address cannot be empty"}
	}

	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return &ConfigError{Field: "db_path", Message: "database path cannot be empty"}
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return &ConfigError{Field: "mongo_uri", Message: "mongo store requires a connection uri"}
		}
		if c.MongoDatabase == "" {
			return &ConfigError{Field: "mongo_database", Message: "database name cannot be empty"}
		}
	default:
		return &ConfigError{Field: "store", Message: fmt.Sprintf("unknown store %q", c.Store)}
	}

	if c.JWTSecret == "" {
		return &ConfigError{Field: "jwt_secret", Message: "token secret is required"}
	}
	if c.AccessTTL <= 0 {
		return &ConfigError{Field: "jwt_access_ttl", Message: "access token ttl must be positive"}
	}
	if c.RefreshTTL <= c.AccessTTL {
		return &ConfigError{Field: "jwt_refresh_ttl", Message: "refresh token ttl must exceed access token ttl"}
	}

	switch c.HolidaySource {
	case HolidayNager:
	case HolidayGoogle:
		if c.GoogleAPIKey == "" {
			return &ConfigError{Field: "google_api_key", Message: "google holiday source requires an api key"}
		}
	default:
		return &ConfigError{Field: "holiday_source", Message: fmt.Sprintf("unknown holiday source %q", c.HolidaySource)}
	}
	if c.HolidayCacheTTL <= 0 {
		return &ConfigError{Field: "holiday_cache_ttl", Message: "holiday cache ttl must be positive"}
	}

	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return &ConfigError{Field: "kafka_topic", Message: "topic cannot be empty when brokers are set"}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Field: "log_level", Message: err.Error()}
	}
	if c.ShutdownTimeout <= 0 {
		return &ConfigError{Field: "shutdown_timeout", Message: "shutdown timeout must be positive"}
	}
	return nil
}

// SlogLevel returns the configured log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
