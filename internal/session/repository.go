package session

import "context"

// Store persists the current session in durable storage. Implementations do
// not validate contents: a stored record that fails to deserialize is
// reported as absent, not as an error.
type Store interface {
	// Load returns the stored session, or ok=false when none is stored.
	Load(ctx context.Context) (s Session, ok bool, err error)
	// Persist overwrites the stored session wholesale.
	Persist(ctx context.Context, s Session) error
	// Clear removes the stored session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// StateCache holds the encoded redirect state for the single in-flight login
// attempt. Storing overwrites any previous attempt, which invalidates its
// eventual callback.
type StateCache interface {
	Load(ctx context.Context) (token string, ok bool, err error)
	Store(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
