package business

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/habitloop/auth-gateway/internal/authflow"
	"github.com/habitloop/auth-gateway/internal/business/server"
	"github.com/habitloop/auth-gateway/internal/config"
	"github.com/habitloop/auth-gateway/internal/serviceerr"
	"github.com/habitloop/auth-gateway/internal/session"
	sessionmemory "github.com/habitloop/auth-gateway/internal/session/memory"
	sessionsql "github.com/habitloop/auth-gateway/internal/session/sql"
	sessionvalkey "github.com/habitloop/auth-gateway/internal/session/valkey"
)

// Main starts the public HTTP API server.
func Main(ctx context.Context, cfg *config.Config) error {
	controller, closeFn, err := initController(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the auth controller: %w", err)
	}

	defer closeFn()

	// restore the stored session; a failure here means we boot anonymous
	if err := controller.Init(ctx); err != nil {
		slogctx.Error(ctx, "Could not resolve the stored session", "error", err)
	}

	return server.StartHTTPServer(ctx, cfg, controller)
}

func initController(ctx context.Context, cfg *config.Config) (_ *authflow.Controller, closeFn func(), _ error) {
	clientID, err := commoncfg.LoadValueFromSourceRef(cfg.Auth.ClientID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading auth client id: %w", err)
	}
	if len(clientID) == 0 {
		return nil, nil, fmt.Errorf("%w: auth.clientID", serviceerr.ErrConfigurationMissing)
	}

	store, states, closeFn, err := initStores(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialising session stores: %w", err)
	}

	manager, err := authflow.NewManager(authflow.Config{
		ProviderDomain:    cfg.Auth.ProviderDomain,
		ClientID:          string(clientID),
		RedirectURI:       cfg.Auth.RedirectURI,
		LogoutRedirectURI: cfg.Auth.LogoutRedirectURI,
	}, store, states, http.DefaultClient)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("creating auth manager: %w", err)
	}

	return authflow.NewController(manager), closeFn, nil
}

func initStores(ctx context.Context, cfg *config.Config) (session.Store, session.StateCache, func(), error) {
	switch cfg.Auth.SessionStore {
	case "valkey":
		client, err := makeValkeyClient(cfg)
		if err != nil {
			return nil, nil, nil, err
		}

		return sessionvalkey.NewSessionStore(client, cfg.ValKey.Prefix),
			sessionvalkey.NewStateCache(client, cfg.ValKey.Prefix, cfg.Auth.StateTTL),
			client.Close,
			nil
	case "postgres":
		connStr, err := config.MakeConnStr(cfg.Database)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("making dsn from config: %w", err)
		}

		db, err := pgxpool.New(ctx, connStr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initialising pgxpool connection: %w", err)
		}

		// the state cache stays in process memory: a login attempt is bound
		// to one running gateway anyway
		return sessionsql.NewStore(db),
			sessionmemory.NewStateCache(cfg.Auth.StateTTL),
			db.Close,
			nil
	case "memory":
		return sessionmemory.NewSessionStore(),
			sessionmemory.NewStateCache(cfg.Auth.StateTTL),
			func() {},
			nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown session store type: %q", cfg.Auth.SessionStore)
	}
}

func makeValkeyClient(cfg *config.Config) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.ValKey.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	})
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return client, nil
}
