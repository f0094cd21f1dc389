package hazelcast

import (
	"context"
	"testing"
	"time"

	"github.com/hazelcast/hazelcast-go-client"

	"github.com/relaycache/httpcache/store/storetest"
)

func TestBackend(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := hazelcast.StartNewClientWithConfig(ctx, hazelcast.Config{})
	if err != nil {
		t.Skipf("skipping test; no hazelcast cluster reachable: %v", err)
	}
	defer client.Shutdown(context.Background()) //nolint:errcheck // best effort cleanup

	m, err := client.GetMap(ctx, "httpcache-test")
	if err != nil {
		t.Fatalf("GetMap: %v", err)
	}

	storetest.Backend(t, NewWithMapAndContext(ctx, m))
}
