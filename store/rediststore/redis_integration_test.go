//go:build integration

package rediststore

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/relaycache/httpcache/store/storetest"
)

const redisImage = "redis:7-alpine"

// setupRedisContainer starts a real Redis server via testcontainers so this
// test exercises the wire protocol instead of a mock, mirroring the
// teacher's redis_integration_test.go.
func setupRedisContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := rediscontainer.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get Redis endpoint: %v", err)
	}
	return endpoint
}

func TestBackendIntegration(t *testing.T) {
	endpoint := setupRedisContainer(t)

	backend, err := New(Config{Address: endpoint})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer backend.Close()

	storetest.Backend(t, backend)
}

func TestNewWithClientSharesServer(t *testing.T) {
	endpoint := setupRedisContainer(t)

	a, err := New(Config{Address: endpoint})
	if err != nil {
		t.Fatalf("New a: %v", err)
	}
	defer a.Close()

	b := NewWithClient(a.client)
	defer b.Close()

	ctx := context.Background()
	if err := a.Set(ctx, "shared-key", []byte("from-a")); err != nil {
		t.Fatalf("a.Set: %v", err)
	}
	val, ok, err := b.Get(ctx, "shared-key")
	if err != nil || !ok {
		t.Fatalf("b.Get: ok=%v err=%v", ok, err)
	}
	if string(val) != "from-a" {
		t.Fatalf("got %q, want %q", val, "from-a")
	}
}
