package business

import (
	"context"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/habitloop/auth-gateway/internal/config"
	"github.com/habitloop/auth-gateway/internal/session"
)

// SweeperMain starts the session sweeper job. It reclaims a stored session
// that is expired and has no refresh token left to redeem; the resolver would
// discard it on the next boot anyway, this just does not wait for one.
func SweeperMain(ctx context.Context, cfg *config.Config) error {
	store, _, closeFn, err := initStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising session stores: %w", err)
	}

	defer closeFn()

	slogctx.Info(ctx, "Starting session sweeper job")

	c := time.Tick(cfg.Sweeper.TriggerInterval)
	for {
		if err := sweepOnce(ctx, store); err != nil {
			slogctx.Error(ctx, "Error during session sweep", "error", err)
		}

		select {
		case <-c:
			continue
		case <-ctx.Done():
			return nil
		}
	}
}

func sweepOnce(ctx context.Context, store session.Store) error {
	sess, ok, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if !sess.ExpiresWithin(time.Now(), 0) || sess.RefreshToken != "" {
		return nil
	}

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing expired session: %w", err)
	}

	slogctx.Info(ctx, "Swept an expired session with no refresh token")

	return nil
}
