package sessionmemory

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/auth-gateway/internal/session"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := t.Context()
	store := NewSessionStore()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "Expected no session before the first persist")

	sess := session.Session{
		IDToken:      "id-token",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
	}

	require.NoError(t, store.Persist(ctx, sess))

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(sess, got))

	// a persist replaces the record wholesale
	next := session.Session{IDToken: "id-2", AccessToken: "access-2", ExpiresAt: sess.ExpiresAt}
	require.NoError(t, store.Persist(ctx, next))

	got, ok, err = store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(next, got))
	assert.Empty(t, got.RefreshToken, "Refresh token must not leak from the previous record")

	require.NoError(t, store.Clear(ctx))

	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "Expected no session after clear")
}

func TestSessionStoreClearEmpty(t *testing.T) {
	store := NewSessionStore()

	assert.NoError(t, store.Clear(t.Context()))
}

func TestStateCacheRoundTrip(t *testing.T) {
	ctx := t.Context()
	cache := NewStateCache(time.Minute)

	_, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "Expected no state before the first store")

	require.NoError(t, cache.Store(ctx, "state-one"))

	got, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "state-one", got)

	// a new login attempt overwrites the in-flight one
	require.NoError(t, cache.Store(ctx, "state-two"))

	got, ok, err = cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "state-two", got)

	require.NoError(t, cache.Clear(ctx))

	_, ok, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "Expected no state after clear")
}

func TestStateCacheExpiry(t *testing.T) {
	ctx := t.Context()
	cache := NewStateCache(10 * time.Millisecond)

	require.NoError(t, cache.Store(ctx, "state-one"))

	time.Sleep(30 * time.Millisecond)

	_, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "Expected the state to age out")
}
