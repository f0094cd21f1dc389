package metricsstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/relaycache/httpcache/store/memstore"
	"github.com/relaycache/httpcache/store/storetest"
)

type recordingCollector struct {
	mu    sync.Mutex
	calls []string
}

func (c *recordingCollector) RecordStoreOperation(operation, backend, result string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, operation+":"+backend+":"+result)
}

func (c *recordingCollector) RecordStoreSize(string, int64)                    {}
func (c *recordingCollector) RecordStoreEntries(string, int64)                 {}
func (c *recordingCollector) RecordExchange(string, string, int, time.Duration) {}
func (c *recordingCollector) RecordResponseSize(string, int64)                 {}
func (c *recordingCollector) RecordStaleServed(string)                        {}

func (c *recordingCollector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func TestBackendSatisfiesStoreContract(t *testing.T) {
	storetest.Backend(t, New(memstore.New(), "memory", nil))
}

func TestBackendRecordsOperations(t *testing.T) {
	ctx := context.Background()
	collector := &recordingCollector{}
	b := New(memstore.New(), "memory", collector)

	if _, _, err := b.Get(ctx, "missing"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := b.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, _, err := b.Get(ctx, "k"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got := collector.snapshot()
	want := []string{"get:memory:miss", "set:memory:success", "get:memory:hit", "delete:memory:success"}
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNilCollectorDefaultsToNoOp(t *testing.T) {
	ctx := context.Background()
	b := New(memstore.New(), "memory", nil)
	if err := b.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := b.Get(ctx, "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("Get: val=%q ok=%v err=%v", val, ok, err)
	}
}
