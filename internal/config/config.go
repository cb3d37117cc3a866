// Package config loads the process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// DatabaseConfig holds postgres connection settings. An empty DSN selects
// the in-memory store (local development and tests).
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds the token signing key and lifetime.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

// ObjectStoreConfig holds S3-compatible storage settings for cover images.
type ObjectStoreConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	URLExpiry time.Duration
}

// CacheConfig holds optional redis settings. An empty Addr disables caching.
type CacheConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// RateLimitConfig holds per-client request budget settings.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// Config is the full process configuration.
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	ObjectStore ObjectStoreConfig
	Cache       CacheConfig
	RateLimit   RateLimitConfig
	CORSOrigins []string
}

// Load reads the configuration from environment variables, applying
// defaults for everything except the token signing key.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         envString("API_HOST", "0.0.0.0"),
			Port:         envInt("API_PORT", 4000),
			ReadTimeout:  envDuration("API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: envDuration("API_WRITE_TIMEOUT", 15*time.Second),
		},
		Logging: LoggingConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
			Output: envString("LOG_OUTPUT", "stdout"),
		},
		Database: DatabaseConfig{
			DSN:             os.Getenv("DATABASE_DSN"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Auth: AuthConfig{
			SigningKey: os.Getenv("JWT_PRIVATE_SIGN_KEY"),
			TokenTTL:   envDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    envString("S3_REGION", "us-east-1"),
			Bucket:    envString("S3_BUCKET", "images"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			URLExpiry: envDuration("S3_URL_EXPIRY", time.Hour),
		},
		Cache: CacheConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			TTL:      envDuration("CACHE_TTL", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envInt("RATE_LIMIT_RPS", 50),
			Burst:             envInt("RATE_LIMIT_BURST", 100),
		},
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
	}

	if strings.TrimSpace(cfg.Auth.SigningKey) == "" {
		return nil, fmt.Errorf("JWT_PRIVATE_SIGN_KEY is required")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
