package multistore

import (
	"context"
	"testing"

	"github.com/relaycache/httpcache/store"
	"github.com/relaycache/httpcache/store/memstore"
	"github.com/relaycache/httpcache/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterface(t *testing.T) {
	var _ store.Backend = &Backend{}
}

func TestBackendSatisfiesStoreContract(t *testing.T) {
	storetest.Backend(t, New(memstore.New(), memstore.New()))
}

func TestNew(t *testing.T) {
	tier1 := memstore.New()
	tier2 := memstore.New()
	tier3 := memstore.New()

	tests := []struct {
		name   string
		tiers  []store.Backend
		expect bool
	}{
		{name: "valid single tier", tiers: []store.Backend{tier1}, expect: true},
		{name: "valid two tiers", tiers: []store.Backend{tier1, tier2}, expect: true},
		{name: "valid three tiers", tiers: []store.Backend{tier1, tier2, tier3}, expect: true},
		{name: "no tiers", tiers: []store.Backend{}, expect: false},
		{name: "nil tier", tiers: []store.Backend{tier1, nil, tier3}, expect: false},
		{name: "duplicate tier", tiers: []store.Backend{tier1, tier2, tier1}, expect: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := New(tt.tiers...)
			if tt.expect {
				require.NotNil(t, mc)
				assert.Equal(t, len(tt.tiers), len(mc.tiers))
			} else {
				assert.Nil(t, mc)
			}
		})
	}
}

func TestGet_SingleTier(t *testing.T) {
	ctx := context.Background()
	tier1 := memstore.New()
	mc := New(tier1)
	require.NotNil(t, mc)

	value, ok, _ := mc.Get(ctx, "missing")
	assert.False(t, ok)
	assert.Nil(t, value)

	_ = tier1.Set(ctx, "key1", []byte("value1"))
	value, ok, _ = mc.Get(ctx, "key1")
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), value)
}

func TestGet_MultipleTiers_FoundInFirst(t *testing.T) {
	ctx := context.Background()
	tier1, tier2, tier3 := memstore.New(), memstore.New(), memstore.New()
	mc := New(tier1, tier2, tier3)
	require.NotNil(t, mc)

	_ = tier1.Set(ctx, "key1", []byte("value1"))

	value, ok, _ := mc.Get(ctx, "key1")
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), value)

	_, ok, _ = tier2.Get(ctx, "key1")
	assert.False(t, ok)
	_, ok, _ = tier3.Get(ctx, "key1")
	assert.False(t, ok)
}

func TestGet_MultipleTiers_FoundInMiddle(t *testing.T) {
	ctx := context.Background()
	tier1, tier2, tier3 := memstore.New(), memstore.New(), memstore.New()
	mc := New(tier1, tier2, tier3)
	require.NotNil(t, mc)

	_ = tier2.Set(ctx, "key1", []byte("value1"))

	value, ok, _ := mc.Get(ctx, "key1")
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), value)

	value, ok, _ = tier1.Get(ctx, "key1")
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), value)

	_, ok, _ = tier3.Get(ctx, "key1")
	assert.False(t, ok)
}

func TestGet_MultipleTiers_FoundInLast(t *testing.T) {
	ctx := context.Background()
	tier1, tier2, tier3 := memstore.New(), memstore.New(), memstore.New()
	mc := New(tier1, tier2, tier3)
	require.NotNil(t, mc)

	_ = tier3.Set(ctx, "key1", []byte("value1"))

	value, ok, _ := mc.Get(ctx, "key1")
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), value)

	value, ok, _ = tier1.Get(ctx, "key1")
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), value)

	value, ok, _ = tier2.Get(ctx, "key1")
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), value)
}

func TestGet_NotFound(t *testing.T) {
	ctx := context.Background()
	mc := New(memstore.New(), memstore.New(), memstore.New())
	require.NotNil(t, mc)

	value, ok, _ := mc.Get(ctx, "missing")
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestSet_MultipleTiers(t *testing.T) {
	ctx := context.Background()
	tier1, tier2, tier3 := memstore.New(), memstore.New(), memstore.New()
	mc := New(tier1, tier2, tier3)
	require.NotNil(t, mc)

	_ = mc.Set(ctx, "key1", []byte("value1"))

	for _, tier := range []*memstore.Backend{tier1, tier2, tier3} {
		value, ok, _ := tier.Get(ctx, "key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value1"), value)
	}
}

func TestSet_Overwrite(t *testing.T) {
	ctx := context.Background()
	tier1, tier2 := memstore.New(), memstore.New()
	mc := New(tier1, tier2)
	require.NotNil(t, mc)

	_ = mc.Set(ctx, "key1", []byte("value1"))
	_ = mc.Set(ctx, "key1", []byte("value2"))

	for _, tier := range []*memstore.Backend{tier1, tier2} {
		value, ok, _ := tier.Get(ctx, "key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value2"), value)
	}
}

func TestDelete_MultipleTiers(t *testing.T) {
	ctx := context.Background()
	tier1, tier2, tier3 := memstore.New(), memstore.New(), memstore.New()
	mc := New(tier1, tier2, tier3)
	require.NotNil(t, mc)

	_ = tier1.Set(ctx, "key1", []byte("value1"))
	_ = tier2.Set(ctx, "key1", []byte("value1"))
	_ = tier3.Set(ctx, "key1", []byte("value1"))

	_ = mc.Delete(ctx, "key1")

	for _, tier := range []*memstore.Backend{tier1, tier2, tier3} {
		_, ok, _ := tier.Get(ctx, "key1")
		assert.False(t, ok)
	}
}

func TestDelete_NotFound(t *testing.T) {
	ctx := context.Background()
	mc := New(memstore.New(), memstore.New())
	require.NotNil(t, mc)

	_ = mc.Delete(ctx, "missing")
}

func TestPromotion_Scenario(t *testing.T) {
	ctx := context.Background()
	tier1, tier2, tier3 := memstore.New(), memstore.New(), memstore.New()
	mc := New(tier1, tier2, tier3)
	require.NotNil(t, mc)

	_ = mc.Set(ctx, "hot-key", []byte("hot-value"))

	_ = tier1.Delete(ctx, "hot-key")

	value, ok, _ := mc.Get(ctx, "hot-key")
	assert.True(t, ok)
	assert.Equal(t, []byte("hot-value"), value)

	value, ok, _ = tier1.Get(ctx, "hot-key")
	assert.True(t, ok)
	assert.Equal(t, []byte("hot-value"), value)

	_ = tier1.Delete(ctx, "hot-key")
	_ = tier2.Delete(ctx, "hot-key")

	value, ok, _ = mc.Get(ctx, "hot-key")
	assert.True(t, ok)
	assert.Equal(t, []byte("hot-value"), value)

	value, ok, _ = tier1.Get(ctx, "hot-key")
	assert.True(t, ok)
	assert.Equal(t, []byte("hot-value"), value)

	value, ok, _ = tier2.Get(ctx, "hot-key")
	assert.True(t, ok)
	assert.Equal(t, []byte("hot-value"), value)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	tier1, tier2 := memstore.New(), memstore.New()
	mc := New(tier1, tier2)
	require.NotNil(t, mc)

	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			_ = mc.Set(ctx, "key", []byte("value"))
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_, _, _ = mc.Get(ctx, "key")
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = mc.Delete(ctx, "key")
		}
		done <- true
	}()

	<-done
	<-done
	<-done
}
