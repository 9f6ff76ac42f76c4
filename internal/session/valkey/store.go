// Package sessionvalkey stores the current session and the in-flight login
// state in ValKey as whole-value JSON blobs under fixed keys.
package sessionvalkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/habitloop/auth-gateway/internal/session"
)

const (
	sessionKey = "session:current"
	stateKey   = "state:current"
)

type SessionStore struct {
	valkey valkey.Client
	prefix string
}

var _ session.Store = (*SessionStore)(nil)

func NewSessionStore(valkeyClient valkey.Client, prefix string) *SessionStore {
	return &SessionStore{
		valkey: valkeyClient,
		prefix: strings.TrimSuffix(prefix, ":"),
	}
}

func (s *SessionStore) Load(ctx context.Context) (session.Session, bool, error) {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(s.key(sessionKey)).Build()).AsBytes()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return session.Session{}, false, nil
		}

		return session.Session{}, false, fmt.Errorf("executing get command: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(bytes, &sess); err != nil {
		// corrupt record counts as absent
		slogctx.Warn(ctx, "Discarding unreadable stored session", "error", err)
		return session.Session{}, false, nil
	}

	return sess, true, nil
}

func (s *SessionStore) Persist(ctx context.Context, sess session.Session) error {
	bytes, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	cmd := s.valkey.B().Set().Key(s.key(sessionKey)).Value(valkey.BinaryString(bytes)).Build()
	if err := s.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(s.key(sessionKey)).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (s *SessionStore) key(name string) string {
	return fmt.Sprintf("%s:%s", s.prefix, name)
}

type StateCache struct {
	valkey valkey.Client
	prefix string
	ttl    time.Duration
}

var _ session.StateCache = (*StateCache)(nil)

func NewStateCache(valkeyClient valkey.Client, prefix string, ttl time.Duration) *StateCache {
	return &StateCache{
		valkey: valkeyClient,
		prefix: strings.TrimSuffix(prefix, ":"),
		ttl:    ttl,
	}
}

func (c *StateCache) Load(ctx context.Context) (string, bool, error) {
	token, err := c.valkey.Do(ctx, c.valkey.B().Get().Key(c.key(stateKey)).Build()).ToString()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			return "", false, nil
		}

		return "", false, fmt.Errorf("executing get command: %w", err)
	}

	return token, true, nil
}

func (c *StateCache) Store(ctx context.Context, token string) error {
	cmd := c.valkey.B().Set().Key(c.key(stateKey)).Value(token).Ex(c.ttl).Build()
	if err := c.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (c *StateCache) Clear(ctx context.Context) error {
	if err := c.valkey.Do(ctx, c.valkey.B().Del().Key(c.key(stateKey)).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (c *StateCache) key(name string) string {
	return fmt.Sprintf("%s:%s", c.prefix, name)
}
