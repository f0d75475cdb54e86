package session_store //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lewisedginton/ward_desk/internal/entities"
)

// startRedis runs a throwaway Redis container, skipping when Docker is not
// available.
func startRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	if os.Getenv("TESTCONTAINERS_RYUK_DISABLED") == "" {
		t.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	// testcontainers may report "null" as the host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisBackend(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	backend := NewRedisBackend(client)
	store := NewStore(backend, Config{Channel: ChannelChat})

	c := store.Load(ctx, "redis-1")
	c.Entities.Merge(entities.Set{entities.IDNumber: {"8001015009087"}})
	c.AppendTurn(Turn{Role: RoleUser, Text: "bursary please", Timestamp: time.Now().UTC()})
	store.Save(ctx, c)

	t.Run("value stored under the channel prefix with expiry", func(t *testing.T) {
		ttl, err := client.TTL(ctx, "ai_context:redis-1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 59*time.Minute)
		assert.LessOrEqual(t, ttl, time.Hour)
	})

	t.Run("round trip", func(t *testing.T) {
		got, err := store.Get(ctx, "redis-1")
		require.NoError(t, err)
		assert.Equal(t, "8001015009087", got.Entities.First(entities.IDNumber))
		require.Len(t, got.History, 1)
		assert.Equal(t, "bursary please", got.History[0].Text)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "redis-1"))
		_, err := store.Get(ctx, "redis-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRedisBackendUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer func() { _ = client.Close() }()

	store := NewStore(NewRedisBackend(client), Config{Channel: ChannelMenu})
	c := store.Load(context.Background(), "s")
	assert.Equal(t, "s", c.SessionID)
	assert.Empty(t, c.Path)
}
