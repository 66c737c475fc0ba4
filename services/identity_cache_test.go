package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrbar/db"
)

func TestMemoryIdentityCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryIdentityCache()

	_, ok, err := c.Get(ctx, "chat-1", "7")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "chat-1", "7", IdentityRef{UserID: 5, Kind: StateGuest}))
	ref, ok, err := c.Get(ctx, "chat-1", "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(5), ref.UserID)
	assert.False(t, ref.UpdatedAt.IsZero())

	_, ok, _ = c.Get(ctx, "chat-2", "7")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "chat-1", "8")
	assert.False(t, ok)

	require.NoError(t, c.Delete(ctx, "chat-1", "7"))
	_, ok, _ = c.Get(ctx, "chat-1", "7")
	assert.False(t, ok)
}

// Integration test for the Postgres cache (requires DB). Skip if db.Pool is nil or -short.
func TestPGIdentityCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping identity cache integration test in short mode")
	}
	if db.Pool == nil {
		t.Skip("skipping identity cache integration test: no DB pool")
	}
	ctx := context.Background()
	c := NewPGIdentityCache(db.Pool)
	const scope = "test-scope-999999997"

	defer func() {
		_ = c.Delete(ctx, scope, "7")
	}()

	require.NoError(t, c.Put(ctx, scope, "7", IdentityRef{UserID: 11, Kind: StateAuthenticated}))
	require.NoError(t, c.Put(ctx, scope, "7", IdentityRef{UserID: 12, Kind: StateGuest}))

	ref, ok, err := c.Get(ctx, scope, "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(12), ref.UserID)
	assert.Equal(t, StateGuest, ref.Kind)

	assert.Error(t, c.Put(ctx, scope, "7", IdentityRef{UserID: 1, Kind: StateFailed}))

	require.NoError(t, c.Delete(ctx, scope, "7"))
	_, ok, err = c.Get(ctx, scope, "7")
	require.NoError(t, err)
	assert.False(t, ok)
}
