package freecachestore

import (
	"testing"

	"github.com/relaycache/httpcache/store/storetest"
)

func TestBackend(t *testing.T) {
	storetest.Backend(t, New(1024*1024))
}
