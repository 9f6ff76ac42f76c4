// Package sessionmemory provides in-process storage for single-node
// deployments and tests. The state cache mirrors the tab-scoped short-lived
// storage of the original client: one fixed key, TTL-bounded, overwritten by
// every new login attempt.
package sessionmemory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/habitloop/auth-gateway/internal/session"
)

const (
	sessionKey = "auth:session:current"
	stateKey   = "auth:state:current"

	cleanupInterval = 10 * time.Minute
)

type SessionStore struct {
	cache *gocache.Cache
}

var _ session.Store = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (s *SessionStore) Load(_ context.Context) (session.Session, bool, error) {
	v, ok := s.cache.Get(sessionKey)
	if !ok {
		return session.Session{}, false, nil
	}

	sess, ok := v.(session.Session)
	if !ok {
		// unreadable record is the same as no record
		s.cache.Delete(sessionKey)
		return session.Session{}, false, nil
	}

	return sess, true, nil
}

func (s *SessionStore) Persist(_ context.Context, sess session.Session) error {
	s.cache.Set(sessionKey, sess, gocache.NoExpiration)
	return nil
}

func (s *SessionStore) Clear(_ context.Context) error {
	s.cache.Delete(sessionKey)
	return nil
}

type StateCache struct {
	cache *gocache.Cache
	ttl   time.Duration
}

var _ session.StateCache = (*StateCache)(nil)

// NewStateCache bounds an in-flight login attempt to ttl; an abandoned
// redirect simply ages out.
func NewStateCache(ttl time.Duration) *StateCache {
	return &StateCache{
		cache: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

func (c *StateCache) Load(_ context.Context) (string, bool, error) {
	v, ok := c.cache.Get(stateKey)
	if !ok {
		return "", false, nil
	}

	token, ok := v.(string)
	if !ok {
		c.cache.Delete(stateKey)
		return "", false, nil
	}

	return token, true, nil
}

func (c *StateCache) Store(_ context.Context, token string) error {
	c.cache.Set(stateKey, token, c.ttl)
	return nil
}

func (c *StateCache) Clear(_ context.Context) error {
	c.cache.Delete(stateKey)
	return nil
}
