package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, StoreBackendMemory, cfg.Store.Backend)
	require.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	require.Equal(t, 10*time.Second, cfg.Board.WriteTimeout())
	require.Equal(t, 60, cfg.Auth.AccessTokenTTLMinutes)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("BOARD_WRITE_TIMEOUT_SECONDS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StoreBackendRedis, cfg.Store.Backend)
	require.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	require.Equal(t, 3*time.Second, cfg.Board.WriteTimeout())
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "dynamo")
	_, err := Load()
	require.Error(t, err)
}
