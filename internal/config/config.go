// Package config loads movies-service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr      = ":27780"
	defaultPrometheusAddr  = ":9090"
	defaultNATSStream      = "CHAMICORE_MOVIES"
	defaultMaxBodyBytes    = 1 << 20
	defaultShutdownTimeout = 15 * time.Second
)

// Config holds service configuration values.
type Config struct {
	ListenAddr     string
	LogLevel       string
	JWTSecret      string
	JWTIssuer      string
	PrometheusAddr string
	SeedFile       string
	NATSURL        string
	NATSStream     string

	DevMode        bool
	MetricsEnabled bool

	MaxBodyBytes    int
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:      envOrDefault("CHAMICORE_MOVIES_LISTEN_ADDR", defaultListenAddr),
		LogLevel:        strings.ToLower(envOrDefault("CHAMICORE_MOVIES_LOG_LEVEL", "info")),
		DevMode:         envBool("CHAMICORE_MOVIES_DEV_MODE", false),
		JWTSecret:       os.Getenv("CHAMICORE_MOVIES_JWT_SECRET"),
		JWTIssuer:       strings.TrimSpace(os.Getenv("CHAMICORE_MOVIES_JWT_ISSUER")),
		MetricsEnabled:  envBool("CHAMICORE_MOVIES_METRICS_ENABLED", true),
		PrometheusAddr:  envLookupOrDefault("CHAMICORE_MOVIES_PROMETHEUS_ADDR", defaultPrometheusAddr),
		SeedFile:        strings.TrimSpace(os.Getenv("CHAMICORE_MOVIES_SEED_FILE")),
		NATSURL:         strings.TrimSpace(os.Getenv("CHAMICORE_NATS_URL")),
		NATSStream:      strings.TrimSpace(envOrDefault("CHAMICORE_MOVIES_NATS_STREAM", defaultNATSStream)),
		MaxBodyBytes:    envPositiveInt("CHAMICORE_MOVIES_MAX_BODY_BYTES", defaultMaxBodyBytes),
		ShutdownTimeout: envPositiveDuration("CHAMICORE_MOVIES_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	if cfg.NATSStream == "" {
		cfg.NATSStream = defaultNATSStream
	}
	if !cfg.DevMode && strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, fmt.Errorf("CHAMICORE_MOVIES_JWT_SECRET is required unless CHAMICORE_MOVIES_DEV_MODE is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envLookupOrDefault distinguishes an unset variable from an empty one: only
// the unset case falls back to defaultVal.
func envLookupOrDefault(key, defaultVal string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	return strings.TrimSpace(v)
}

func envBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return b
}

func envPositiveInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}

func envPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}
