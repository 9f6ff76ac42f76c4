//go:build integration

package sessionsql

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/auth-gateway/internal/dbtest/postgrestest"
	"github.com/habitloop/auth-gateway/internal/session"
)

var dbPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	var terminate func(ctx context.Context)
	dbPool, _, terminate = postgrestest.Start(ctx)

	defer terminate(ctx)

	m.Run()
}

func clearTable(t *testing.T) {
	t.Helper()

	_, err := dbPool.Exec(t.Context(), `DELETE FROM auth_session;`)
	require.NoError(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	clearTable(t)

	ctx := t.Context()
	store := NewStore(dbPool)

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

func TestStoreSingleRow(t *testing.T) {
	clearTable(t)

	ctx := t.Context()
	store := NewStore(dbPool)

	require.NoError(t, store.Persist(ctx, session.Session{IDToken: "id-1", AccessToken: "access-1"}))
	require.NoError(t, store.Persist(ctx, session.Session{IDToken: "id-2", AccessToken: "access-2"}))

	var count int
	require.NoError(t, dbPool.QueryRow(ctx, `SELECT count(*) FROM auth_session;`).Scan(&count))
	assert.Equal(t, 1, count, "The table must never hold more than one session row")
}

func TestStoreCorruptRecord(t *testing.T) {
	clearTable(t)

	ctx := t.Context()
	store := NewStore(dbPool)

	_, err := dbPool.Exec(ctx, `INSERT INTO auth_session (id, payload) VALUES (1, '"not an object"'::jsonb);`)
	require.NoError(t, err)

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "A corrupt record must count as absent")
}

func TestStoreClearEmpty(t *testing.T) {
	clearTable(t)

	store := NewStore(dbPool)
	assert.NoError(t, store.Clear(t.Context()))
}
