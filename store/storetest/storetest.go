// Package storetest provides a generic acceptance test for store.Backend
// implementations, grounded on the teacher's test/test.go helper.
package storetest

import (
	"bytes"
	"context"
	"testing"

	"github.com/relaycache/httpcache/store"
)

// Backend exercises a store.Backend implementation: get-miss, set, get-hit,
// delete, get-miss again. Every concrete backend package calls this from its
// own _test.go against a freshly constructed instance.
func Backend(t *testing.T, backend store.Backend) {
	t.Helper()
	ctx := context.Background()
	key := "storetest-key"

	_, ok, err := backend.Get(ctx, key)
	if err != nil {
		t.Fatalf("get before set: %v", err)
	}
	if ok {
		t.Fatal("key present before it was ever set")
	}

	val := []byte("storetest value")
	if err := backend.Set(ctx, key, val); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := backend.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after set: %v", err)
	}
	if !ok {
		t.Fatal("key missing right after set")
	}
	if !bytes.Equal(got, val) {
		t.Fatalf("got %q, want %q", got, val)
	}

	overwrite := []byte("storetest value v2")
	if err := backend.Set(ctx, key, overwrite); err != nil {
		t.Fatalf("overwrite set: %v", err)
	}
	got, _, err = backend.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if !bytes.Equal(got, overwrite) {
		t.Fatalf("got %q after overwrite, want %q", got, overwrite)
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, ok, err = backend.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatal("key still present after delete")
	}

	if err := backend.Delete(ctx, "never-set-key"); err != nil {
		t.Fatalf("delete of absent key should not error: %v", err)
	}
}
