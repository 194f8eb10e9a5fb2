package cache

import (
	"context"
	"testing"
	"time"

	"boatbet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
			Labels:       map[string]string{"test": "boatbet-cache", "cleanup": "auto"},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestCartStore(t *testing.T) {
	addr := setupRedis(t)
	ctx := context.Background()

	rdb, err := ConnectRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewCartStore(rdb, time.Minute)

	t.Run("missing cart is empty", func(t *testing.T) {
		cart, err := store.Load(ctx, "nobody")
		require.NoError(t, err)
		assert.True(t, cart.IsEmpty())
	})

	t.Run("round trip", func(t *testing.T) {
		cart := &models.Cart{}
		_, err := cart.AddFormation("f1", models.BetTypeTrio, models.BoatSelection{
			First: []int{1}, Second: []int{2, 3}, Third: []int{3, 4},
		}, 200)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "s1", cart))

		loaded, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, cart.Formations, loaded.Formations)
		assert.Equal(t, cart.TotalStake(), loaded.TotalStake())

		ttl, err := rdb.TTL(ctx, cartKey("s1")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "s1"))
		cart, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.True(t, cart.IsEmpty())
	})

	t.Run("corrupt value", func(t *testing.T) {
		require.NoError(t, rdb.Set(ctx, cartKey("bad"), "{", time.Minute).Err())
		_, err := store.Load(ctx, "bad")
		assert.ErrorIs(t, err, models.ErrParseFailure)
	})
}
