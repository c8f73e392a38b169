package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_ALLOWED_CHAIN_IDS", "")
	t.Setenv("AUTH_NONCE_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Auth.NonceTTL)
	assert.Equal(t, []int64{1}, cfg.Auth.AllowedChains)
	assert.Equal(t, 32, cfg.Realtime.FanOut)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_ALLOWED_CHAIN_IDS", "1, 137,42161")
	t.Setenv("AUTH_ALLOWED_DOMAINS", "app.example.com,localhost:3000")
	t.Setenv("AUTH_ACCESS_TTL", "5m")
	t.Setenv("WS_FANOUT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 137, 42161}, cfg.Auth.AllowedChains)
	assert.Equal(t, []string{"app.example.com", "localhost:3000"}, cfg.Auth.AllowedDomains)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 32, cfg.Realtime.FanOut)
}

func TestLoadRejectsBadChainIDs(t *testing.T) {
	t.Setenv("AUTH_ALLOWED_CHAIN_IDS", "mainnet")

	_, err := Load()
	require.Error(t, err)
}
