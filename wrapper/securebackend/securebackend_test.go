package securebackend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycache/cachegate"
	"github.com/relaycache/cachegate/storage/memstore"
)

func TestNewRejectsNilInner(t *testing.T) {
	_, err := New(nil, "passphrase")
	assert.Error(t, err)
}

func TestSetGetRoundTripWithPassphrase(t *testing.T) {
	ctx := context.Background()
	inner := memstore.New()
	b, err := New(inner, "correct horse battery staple")
	require.NoError(t, err)

	require.NoError(t, b.Set(ctx, "http://example.com/a", []byte("secret body")))

	got, ok, err := b.Get(ctx, "http://example.com/a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret body", string(got))
}

func TestInnerValueIsEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	inner := memstore.New()
	b, err := New(inner, "correct horse battery staple")
	require.NoError(t, err)

	require.NoError(t, b.Set(ctx, "key", []byte("plaintext value")))

	_, ok, err := inner.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok, "inner backend should not have an entry under the raw key")

	stored, ok, err := inner.Get(ctx, cachegate.HashKey("key"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, "plaintext value", string(stored), "inner backend should hold ciphertext, not the plaintext")
}

func TestEmptyPassphraseDisablesEncryptionButHashesKeys(t *testing.T) {
	ctx := context.Background()
	inner := memstore.New()
	b, err := New(inner, "")
	require.NoError(t, err)

	require.NoError(t, b.Set(ctx, "key", []byte("plaintext value")))

	got, ok, err := b.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "plaintext value", string(got))

	_, rawOK, err := inner.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, rawOK, "the inner backend is keyed by hash, not the raw key")
}
