package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/signature-verify/internal/signature"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// ModelConfig holds inference backend settings for both model families.
type ModelConfig struct {
	CleanerURL     string
	MatcherURL     string
	Bypass         bool
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	MatchThreshold float64
}

// AuthConfig holds JWT validation settings.
type AuthConfig struct {
	JWTSecret   string
	JWTAudience string
}

// Config is the top-level application configuration.
type Config struct {
	LogLevel    string
	Server      ServerConfig
	DatabaseDSN string
	RedisAddr   string
	Models      ModelConfig
	MaxParallel int
	Auth        AuthConfig
}

// Address returns the host:port the server binds to.
func (c *Config) Address() string {
	return net.JoinHostPort(strings.TrimSpace(c.Server.Host), strings.TrimSpace(c.Server.Port))
}

// Load reads configuration from a .env file (when present) and the
// environment, applies defaults, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:            getEnv("HOST", "0.0.0.0"),
			Port:            getEnv("PORT", "8080"),
			ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"), 15*time.Second),
			MaxBodyBytes:    parseInt64(getEnv("MAX_REQUEST_BODY_BYTES", ""), 20*1024*1024),
		},
		DatabaseDSN: getEnv("DATABASE_DSN", "host=postgres user=postgres password=postgres dbname=signatures port=5432 sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "redis:6379"),
		Models: ModelConfig{
			CleanerURL:     getEnv("CLEANING_MODEL_URL", "http://cleaning-model:9090"),
			MatcherURL:     getEnv("MATCHING_MODEL_URL", "http://matching-model:9090"),
			Bypass:         parseBool(getEnv("MODEL_ERROR_BYPASS_FLAG", "false")),
			ConnectTimeout: parseDuration(getEnv("MODEL_CONNECT_TIMEOUT", "5s"), 5*time.Second),
			RequestTimeout: parseDuration(getEnv("MODEL_REQUEST_TIMEOUT", "30s"), 30*time.Second),
			MatchThreshold: parseFloat(getEnv("MATCH_THRESHOLD", ""), signature.DefaultMatchThreshold),
		},
		MaxParallel: int(parseInt64(getEnv("CLEAN_MAX_PARALLEL", ""), 4)),
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", "dev-secret"),
			JWTAudience: os.Getenv("JWT_AUDIENCE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	port, err := strconv.Atoi(strings.TrimSpace(c.Server.Port))
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0 (got %d)", c.Server.MaxBodyBytes)
	}
	if c.MaxParallel < 1 {
		return fmt.Errorf("CLEAN_MAX_PARALLEL must be >= 1 (got %d)", c.MaxParallel)
	}
	if t := c.Models.MatchThreshold; t < 0 || t > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be within [0,1] (got %g)", t)
	}
	if c.Models.ConnectTimeout <= 0 || c.Models.RequestTimeout <= 0 {
		return fmt.Errorf("model timeouts must be > 0 (got connect=%s, request=%s)",
			c.Models.ConnectTimeout, c.Models.RequestTimeout)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return parsed
}

func parseInt64(value string, fallback int64) int64 {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
