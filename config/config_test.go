package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ADMIN_USER_IDS", "")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, int64(1000), cfg.StartingPoints)
	assert.Equal(t, 24*time.Hour, cfg.CartTTL)
	assert.Equal(t, 4, cfg.SettlementConcurrency)
	assert.Equal(t, "https://boatraceopenapi.github.io", cfg.FeedBaseURL)
	assert.Empty(t, cfg.AdminUserIDs)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("STARTING_POINTS", "5000")
	t.Setenv("CART_TTL", "2h")
	t.Setenv("SETTLEMENT_CONCURRENCY", "8")
	t.Setenv("ADMIN_USER_IDS", " alice , ,bob")
	t.Setenv("LOG_MAX_BACKUPS", "9")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, int64(5000), cfg.StartingPoints)
	assert.Equal(t, 2*time.Hour, cfg.CartTTL)
	assert.Equal(t, 8, cfg.SettlementConcurrency)
	assert.Equal(t, []string{"alice", "bob"}, cfg.AdminUserIDs)
	assert.Equal(t, 9, cfg.LogMaxBackups)
	assert.True(t, cfg.IsAdmin("bob"))
	assert.False(t, cfg.IsAdmin("carol"))
}

func TestLoad_RequiresDatabaseURLOutsideTest(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestSetTestConfig(t *testing.T) {
	t.Cleanup(ResetConfig)

	cfg := NewTestConfig()
	SetTestConfig(cfg)
	assert.Same(t, cfg, Get())

	cfg.DatabaseURL = "postgres://localhost:5432"
	cfg.DatabaseName = "boatbet"
	assert.Equal(t, "postgres://localhost:5432/boatbet?sslmode=disable", cfg.GetDatabaseURL())
}
