package multistore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycache/cachegate/storage/memstore"
)

func TestNewRejectsEmptyOrDuplicateTiers(t *testing.T) {
	assert.Nil(t, New())

	tier := memstore.New()
	assert.Nil(t, New(tier, tier))
}

func TestGetPromotesToFasterTiers(t *testing.T) {
	ctx := context.Background()
	tier1 := memstore.New()
	tier2 := memstore.New()
	ms := New(tier1, tier2)
	require.NotNil(t, ms)

	require.NoError(t, tier2.Set(ctx, "key", []byte("value")))

	value, ok, err := ms.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), value)

	promoted, ok, err := tier1.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), promoted)
}

func TestSetWritesAllTiers(t *testing.T) {
	ctx := context.Background()
	tier1, tier2 := memstore.New(), memstore.New()
	ms := New(tier1, tier2)
	require.NotNil(t, ms)

	require.NoError(t, ms.Set(ctx, "key", []byte("value")))

	for _, tier := range []*memstore.Backend{tier1, tier2} {
		v, ok, err := tier.Get(ctx, "key")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("value"), v)
	}
}

func TestDeleteRemovesFromAllTiers(t *testing.T) {
	ctx := context.Background()
	tier1, tier2 := memstore.New(), memstore.New()
	ms := New(tier1, tier2)
	require.NotNil(t, ms)

	require.NoError(t, ms.Set(ctx, "key", []byte("value")))
	require.NoError(t, ms.Delete(ctx, "key"))

	for _, tier := range []*memstore.Backend{tier1, tier2} {
		_, ok, err := tier.Get(ctx, "key")
		require.NoError(t, err)
		assert.False(t, ok)
	}
}
