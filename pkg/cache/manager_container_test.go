package cache

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

// setupContainerRedis starts a throwaway Redis container. The test is
// skipped when Docker is not available.
func setupContainerRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available for Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	require.NoError(t, err, "container host")

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err, "container port")

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})

	return client
}

func TestManager_Container_RoundTrip(t *testing.T) {
	manager := NewManager(setupContainerRedis(t), time.Minute)
	ctx := context.Background()

	require.NoError(t, manager.Ping(ctx))

	key := Key{Endpoint: "host/level2", Start: 2000, End: 3000}
	entry := NewEntry([]byte(`[{"flag":"x"}]`), nil, manager.DefaultTTL())

	require.NoError(t, manager.Set(ctx, key, entry))

	got, err := manager.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"flag":"x"}]`, string(got.Data))
}
