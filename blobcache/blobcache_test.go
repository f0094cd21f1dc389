package blobcache

import (
	"context"
	"testing"

	_ "gocloud.dev/blob/memblob"

	"github.com/relaycache/httpcache/store/storetest"
)

func TestBackend(t *testing.T) {
	ctx := context.Background()
	backend, err := New(ctx, Config{BucketURL: "mem://"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	storetest.Backend(t, backend)
}
