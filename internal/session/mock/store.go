package sessionmock

import (
	"context"

	"github.com/habitloop/auth-gateway/internal/session"
)

// Store is an in-memory session.Store with injectable errors.
type Store struct {
	Current *session.Session

	loadErr, persistErr, clearErr error
}

var _ session.Store = (*Store)(nil)

func NewStore(loadErr, persistErr, clearErr error) *Store {
	return &Store{
		loadErr:    loadErr,
		persistErr: persistErr,
		clearErr:   clearErr,
	}
}

func (s *Store) Load(context.Context) (session.Session, bool, error) {
	if s.loadErr != nil {
		return session.Session{}, false, s.loadErr
	}

	if s.Current == nil {
		return session.Session{}, false, nil
	}

	return *s.Current, true, nil
}

func (s *Store) Persist(_ context.Context, sess session.Session) error {
	if s.persistErr != nil {
		return s.persistErr
	}

	s.Current = &sess

	return nil
}

func (s *Store) Clear(context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}

	s.Current = nil

	return nil
}

// StateCache is an in-memory session.StateCache with injectable errors.
type StateCache struct {
	Token *string

	loadErr, storeErr, clearErr error
}

var _ session.StateCache = (*StateCache)(nil)

func NewStateCache(loadErr, storeErr, clearErr error) *StateCache {
	return &StateCache{
		loadErr:  loadErr,
		storeErr: storeErr,
		clearErr: clearErr,
	}
}

func (c *StateCache) Load(context.Context) (string, bool, error) {
	if c.loadErr != nil {
		return "", false, c.loadErr
	}

	if c.Token == nil {
		return "", false, nil
	}

	return *c.Token, true, nil
}

func (c *StateCache) Store(_ context.Context, token string) error {
	if c.storeErr != nil {
		return c.storeErr
	}

	c.Token = &token

	return nil
}

func (c *StateCache) Clear(context.Context) error {
	if c.clearErr != nil {
		return c.clearErr
	}

	c.Token = nil

	return nil
}
