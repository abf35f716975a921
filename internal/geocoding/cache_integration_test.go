//go:build integration

package geocoding

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) *redis.Client {
	ctx := context.Background()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		redisC.Terminate(ctx)
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisCache_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	logs := captureDebugLog(t)
	rdb := setupTestRedis(t)
	c := NewRedisCache(rdb)
	ctx := context.Background()

	_, ok := c.Get(ctx, "rev:-31.950000,115.860000")
	assert.False(t, ok)

	c.Set(ctx, "rev:-31.950000,115.860000", "Perth, Western Australia", time.Hour)
	val, ok := c.Get(ctx, "rev:-31.950000,115.860000")
	require.True(t, ok)
	assert.Equal(t, "Perth, Western Australia", val)

	ttl, err := rdb.TTL(ctx, "geocode:rev:-31.950000,115.860000").Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	c.Set(ctx, "short", "gone soon", time.Second)
	require.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "short")
		return !ok
	}, 5*time.Second, 100*time.Millisecond)

	assert.NotContains(t, logs.String(), "geocode cache", "a plain miss is not an error")
}
