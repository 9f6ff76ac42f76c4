// Package sessionsql stores the current session in Postgres as a single-row
// JSON payload, matching the wholesale-overwrite semantics of the other
// stores.
package sessionsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	slogctx "github.com/veqryn/slog-context"

	"github.com/habitloop/auth-gateway/internal/session"
)

type Store struct {
	db *pgxpool.Pool
}

var _ session.Store = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) Load(ctx context.Context) (session.Session, bool, error) {
	var payload []byte
	if err := s.db.QueryRow(ctx, `SELECT payload FROM auth_session WHERE id = 1;`).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Session{}, false, nil
		}

		return session.Session{}, false, fmt.Errorf("selecting from auth_session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		// corrupt record counts as absent
		slogctx.Warn(ctx, "Discarding unreadable stored session", "error", err)
		return session.Session{}, false, nil
	}

	return sess, true, nil
}

func (s *Store) Persist(ctx context.Context, sess session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if _, err := s.db.Exec(
		ctx, `INSERT INTO auth_session (id, payload, updated_at)
	VALUES (1, $1, now())
	ON CONFLICT (id)
	DO UPDATE SET (payload, updated_at) = (EXCLUDED.payload, EXCLUDED.updated_at);`,
		payload,
	); err != nil {
		return fmt.Errorf("upserting into auth_session: %w", err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM auth_session WHERE id = 1;`); err != nil {
		return fmt.Errorf("deleting from auth_session: %w", err)
	}

	return nil
}
