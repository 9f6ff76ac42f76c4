package authflow

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/auth-gateway/internal/session"
	sessionmock "github.com/habitloop/auth-gateway/internal/session/mock"
)

func TestResolveStoredUserNoSession(t *testing.T) {
	m := newTestManager(t, "https://auth.example.com", sessionmock.NewStore(nil, nil, nil), sessionmock.NewStateCache(nil, nil, nil))

	user, err := m.ResolveStoredUser(t.Context())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestResolveStoredUserLoadError(t *testing.T) {
	loadErr := errors.New("storage unavailable")
	m := newTestManager(t, "https://auth.example.com", sessionmock.NewStore(loadErr, nil, nil), sessionmock.NewStateCache(nil, nil, nil))

	_, err := m.ResolveStoredUser(t.Context())
	assert.ErrorIs(t, err, loadErr)
}

func TestResolveStoredUserFreshSession(t *testing.T) {
	endpoint := &tokenEndpoint{status: http.StatusOK, body: `{}`}
	srv := httptest.NewServer(endpoint.handler())
	defer srv.Close()

	store := sessionmock.NewStore(nil, nil, nil)
	store.Current = &session.Session{
		IDToken:      signIDToken(t, "user-123", "ada@example.com"),
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    testNow.Add(time.Hour).UnixMilli(),
	}

	m := newTestManager(t, srv.URL, store, sessionmock.NewStateCache(nil, nil, nil))

	user, err := m.ResolveStoredUser(t.Context())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-123", user.ID)
	assert.Equal(t, "ada@example.com", user.Email)

	assert.Equal(t, int64(0), endpoint.hits.Load(), "A session far from expiry must be trusted without a refresh")
}

func TestResolveStoredUserFreshSessionUnreadableToken(t *testing.T) {
	store := sessionmock.NewStore(nil, nil, nil)
	store.Current = &session.Session{
		IDToken:     "not-a-jwt",
		AccessToken: "access-1",
		ExpiresAt:   testNow.Add(time.Hour).UnixMilli(),
	}

	m := newTestManager(t, "https://auth.example.com", store, sessionmock.NewStateCache(nil, nil, nil))

	user, err := m.ResolveStoredUser(t.Context())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Nil(t, store.Current, "An unreadable session must be discarded")
}

func TestResolveStoredUserNearExpiryRefreshes(t *testing.T) {
	idToken := signIDToken(t, "user-123", "ada@example.com")

	endpoint := &tokenEndpoint{
		status: http.StatusOK,
		body:   fmt.Sprintf(`{"id_token":%q,"access_token":"access-2","refresh_token":"refresh-2","expires_in":3600}`, idToken),
	}
	srv := httptest.NewServer(endpoint.handler())
	defer srv.Close()

	store := sessionmock.NewStore(nil, nil, nil)
	store.Current = &session.Session{
		IDToken:      signIDToken(t, "user-123", "ada@example.com"),
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    testNow.Add(10 * time.Second).UnixMilli(),
	}

	m := newTestManager(t, srv.URL, store, sessionmock.NewStateCache(nil, nil, nil))

	user, err := m.ResolveStoredUser(t.Context())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-123", user.ID)

	assert.Equal(t, int64(1), endpoint.hits.Load())
	assert.Equal(t, "refresh-1", endpoint.lastForm.Get("refresh_token"))

	require.NotNil(t, store.Current)
	assert.Equal(t, "access-2", store.Current.AccessToken)
	assert.Equal(t, "refresh-2", store.Current.RefreshToken)
}

func TestResolveStoredUserNearExpiryRefreshFails(t *testing.T) {
	endpoint := &tokenEndpoint{status: http.StatusBadRequest, body: `{"error":"invalid_grant"}`}
	srv := httptest.NewServer(endpoint.handler())
	defer srv.Close()

	store := sessionmock.NewStore(nil, nil, nil)
	store.Current = &session.Session{
		IDToken:      signIDToken(t, "user-123", "ada@example.com"),
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    testNow.Add(10 * time.Second).UnixMilli(),
	}

	m := newTestManager(t, srv.URL, store, sessionmock.NewStateCache(nil, nil, nil))

	user, err := m.ResolveStoredUser(t.Context())
	require.NoError(t, err, "A failed silent refresh is anonymity, not an error")
	assert.Nil(t, user)
	assert.Nil(t, store.Current)
}

func TestResolveStoredUserNearExpiryNoRefreshToken(t *testing.T) {
	endpoint := &tokenEndpoint{status: http.StatusOK, body: `{}`}
	srv := httptest.NewServer(endpoint.handler())
	defer srv.Close()

	store := sessionmock.NewStore(nil, nil, nil)
	store.Current = &session.Session{
		IDToken:     signIDToken(t, "user-123", "ada@example.com"),
		AccessToken: "access-1",
		ExpiresAt:   testNow.Add(10 * time.Second).UnixMilli(),
	}

	m := newTestManager(t, srv.URL, store, sessionmock.NewStateCache(nil, nil, nil))

	user, err := m.ResolveStoredUser(t.Context())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Nil(t, store.Current)
	assert.Equal(t, int64(0), endpoint.hits.Load())
}
