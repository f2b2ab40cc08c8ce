package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CHAMICORE_MOVIES_LISTEN_ADDR",
		"CHAMICORE_MOVIES_LOG_LEVEL",
		"CHAMICORE_MOVIES_DEV_MODE",
		"CHAMICORE_MOVIES_JWT_SECRET",
		"CHAMICORE_MOVIES_JWT_ISSUER",
		"CHAMICORE_MOVIES_METRICS_ENABLED",
		"CHAMICORE_MOVIES_PROMETHEUS_ADDR",
		"CHAMICORE_MOVIES_SEED_FILE",
		"CHAMICORE_NATS_URL",
		"CHAMICORE_MOVIES_NATS_STREAM",
		"CHAMICORE_MOVIES_MAX_BODY_BYTES",
		"CHAMICORE_MOVIES_SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAMICORE_MOVIES_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Empty(t, cfg.JWTIssuer)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, defaultPrometheusAddr, cfg.PrometheusAddr)
	assert.Empty(t, cfg.SeedFile)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, defaultNATSStream, cfg.NATSStream)
	assert.Equal(t, defaultMaxBodyBytes, cfg.MaxBodyBytes)
	assert.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestLoad_EmptyPrometheusAddrDisablesSeparateListener(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAMICORE_MOVIES_JWT_SECRET", "s3cret")
	t.Setenv("CHAMICORE_MOVIES_PROMETHEUS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.PrometheusAddr)

	t.Setenv("CHAMICORE_MOVIES_PROMETHEUS_ADDR", " 127.0.0.1:9191 ")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9191", cfg.PrometheusAddr)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAMICORE_MOVIES_LISTEN_ADDR", "127.0.0.1:8080")
	t.Setenv("CHAMICORE_MOVIES_LOG_LEVEL", "DEBUG")
	t.Setenv("CHAMICORE_MOVIES_DEV_MODE", "yes")
	t.Setenv("CHAMICORE_MOVIES_JWT_ISSUER", " chamicore-auth ")
	t.Setenv("CHAMICORE_MOVIES_METRICS_ENABLED", "off")
	t.Setenv("CHAMICORE_MOVIES_SEED_FILE", " /etc/movies/seed.yaml ")
	t.Setenv("CHAMICORE_NATS_URL", "nats://nats:4222")
	t.Setenv("CHAMICORE_MOVIES_NATS_STREAM", " MOVIES ")
	t.Setenv("CHAMICORE_MOVIES_MAX_BODY_BYTES", "4096")
	t.Setenv("CHAMICORE_MOVIES_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "chamicore-auth", cfg.JWTIssuer)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, "/etc/movies/seed.yaml", cfg.SeedFile)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.Equal(t, "MOVIES", cfg.NATSStream)
	assert.Equal(t, 4096, cfg.MaxBodyBytes)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_InvalidOrZeroUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAMICORE_MOVIES_DEV_MODE", "maybe")
	t.Setenv("CHAMICORE_MOVIES_JWT_SECRET", "s3cret")
	t.Setenv("CHAMICORE_MOVIES_NATS_STREAM", " ")
	t.Setenv("CHAMICORE_MOVIES_MAX_BODY_BYTES", "-1")
	t.Setenv("CHAMICORE_MOVIES_SHUTDOWN_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.DevMode)
	assert.Equal(t, defaultNATSStream, cfg.NATSStream)
	assert.Equal(t, defaultMaxBodyBytes, cfg.MaxBodyBytes)
	assert.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestLoad_SecretRequiredOutsideDevMode(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAMICORE_MOVIES_JWT_SECRET")

	t.Setenv("CHAMICORE_MOVIES_DEV_MODE", "true")
	_, err = Load()
	require.NoError(t, err)
}
