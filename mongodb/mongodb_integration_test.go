//go:build integration

package mongodb

import (
	"context"
	"testing"
	"time"

	mongodbcontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/relaycache/httpcache/store/storetest"
)

// setupMongoDBContainer starts a real MongoDB server via testcontainers,
// mirroring the teacher's mongodb_integration_test.go.
func setupMongoDBContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	container, err := mongodbcontainer.Run(ctx, "mongo:8",
		mongodbcontainer.WithUsername("root"),
		mongodbcontainer.WithPassword("password"),
	)
	if err != nil {
		t.Fatalf("failed to start MongoDB container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate MongoDB container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get MongoDB connection string: %v", err)
	}
	return uri
}

func TestBackendIntegration(t *testing.T) {
	uri := setupMongoDBContainer(t)

	ctx := context.Background()
	backend, err := New(ctx, Config{
		URI:        uri,
		Database:   "httpcache_test",
		Collection: "cache_integration",
		Timeout:    10 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer backend.(interface{ Close() error }).Close()

	storetest.Backend(t, backend)
}

func TestBackendIntegrationTTLIndex(t *testing.T) {
	uri := setupMongoDBContainer(t)

	ctx := context.Background()
	backend, err := New(ctx, Config{
		URI:        uri,
		Database:   "httpcache_test",
		Collection: "cache_ttl",
		Timeout:    10 * time.Second,
		TTL:        time.Hour,
	})
	if err != nil {
		t.Fatalf("New with TTL: %v", err)
	}
	defer backend.(interface{ Close() error }).Close()

	if err := backend.Set(ctx, "ttl-key", []byte("value")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := backend.Get(ctx, "ttl-key")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(val) != "value" {
		t.Fatalf("got %q, want %q", val, "value")
	}
}
