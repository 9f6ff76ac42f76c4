//go:build integration

package sessionvalkey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/habitloop/auth-gateway/internal/dbtest/valkeytest"
	"github.com/habitloop/auth-gateway/internal/session"
)

var client valkey.Client

func TestMain(m *testing.M) {
	ctx := context.Background()

	var terminate func(ctx context.Context)
	client, _, terminate = valkeytest.Start(ctx)

	defer terminate(ctx)

	m.Run()
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := t.Context()
	store := NewSessionStore(client, "test:roundtrip")

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
	assert.Equal(t, sess, got)

	// a persist replaces the record wholesale
	next := session.Session{IDToken: "id-2", AccessToken: "access-2", ExpiresAt: sess.ExpiresAt}
	require.NoError(t, store.Persist(ctx, next))

	got, ok, err = store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, next, got)
	assert.Empty(t, got.RefreshToken)

	require.NoError(t, store.Clear(ctx))

	_, ok, err = store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "Expected no session after clear")
}

func TestSessionStoreCorruptRecord(t *testing.T) {
	ctx := t.Context()
	store := NewSessionStore(client, "test:corrupt")

	cmd := client.B().Set().Key("test:corrupt:session:current").Value("not json").Build()
	require.NoError(t, client.Do(ctx, cmd).Error())

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "A corrupt record must count as absent")
}

func TestStateCacheRoundTrip(t *testing.T) {
	ctx := t.Context()
	cache := NewStateCache(client, "test:states", time.Minute)

	_, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "Expected no state before the first store")

	require.NoError(t, cache.Store(ctx, "state-one"))

	got, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "state-one", got)

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
	cache := NewStateCache(client, "test:expiry", time.Second)

	require.NoError(t, cache.Store(ctx, "state-one"))

	assert.Eventually(t, func() bool {
		_, ok, err := cache.Load(ctx)
		return err == nil && !ok
	}, 5*time.Second, 200*time.Millisecond, "Expected the state to age out")
}
