package authflow

import (
	"context"

	slogctx "github.com/veqryn/slog-context"

	"github.com/habitloop/auth-gateway/internal/identity"
)

// ResolveStoredUser restores the signed-in user from durable storage. A
// session more than refreshLeeway from expiry is trusted as-is, avoiding a
// refresh race on every boot. Anything closer is refreshed when possible and
// discarded otherwise; a failed silent refresh is never an error, it is just
// "not signed in".
func (m *Manager) ResolveStoredUser(ctx context.Context) (*identity.User, error) {
	sess, ok, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if !sess.ExpiresWithin(m.now(), refreshLeeway) {
		user, err := identity.FromIDToken(sess.IDToken)
		if err != nil {
			slogctx.Warn(ctx, "Discarding stored session with unreadable id token", "error", err)
			m.clearQuietly(ctx)

			return nil, nil
		}

		return &user, nil
	}

	if sess.RefreshToken == "" {
		m.clearQuietly(ctx)

		return nil, nil
	}

	res, err := m.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		slogctx.Info(ctx, "Silent refresh failed, clearing stored session", "error", err)
		m.clearQuietly(ctx)

		return nil, nil
	}

	return &res.User, nil
}

func (m *Manager) clearQuietly(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		slogctx.Warn(ctx, "Could not clear stored session", "error", err)
	}
}
