// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config is the catalog proxy configuration.
type Config struct {
	BaseURI      string
	PageSize     int
	UserAgent    string
	Timeout      time.Duration
	RedisURL     string
	ServerPort   string
	LogLevel     string
	LogPretty    bool
	CORSOrigins  []string
	OTLPEndpoint string
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		BaseURI:      getEnv("CATALOG_BASE_URI", "https://dummyjson.com"),
		PageSize:     getIntEnv("CATALOG_PAGE_SIZE", 20),
		UserAgent:    getEnv("CATALOG_USER_AGENT", "product-catalog-client/0.1.0"),
		Timeout:      getDurationEnv("CATALOG_TIMEOUT", 10*time.Second),
		RedisURL:     getEnv("REDIS_URL", ""),
		ServerPort:   getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getBoolEnv("LOG_PRETTY", false),
		CORSOrigins:  getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// Validate checks values that would make the service unusable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: CATALOG_BASE_URI must be an absolute URL (got %q)", ErrInvalid, c.BaseURI)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("%w: CATALOG_PAGE_SIZE must be >= 1 (got %d)", ErrInvalid, c.PageSize)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("%w: CATALOG_USER_AGENT is required", ErrInvalid)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: CATALOG_TIMEOUT must be > 0 (got %s)", ErrInvalid, c.Timeout)
	}
	if c.ServerPort == "" {
		return fmt.Errorf("%w: PORT is required", ErrInvalid)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		// "10s", "1m"
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// plain seconds
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

func getListEnv(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
