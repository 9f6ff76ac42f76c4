// Package authflow implements the OAuth2 authorization-code + PKCE login
// lifecycle against the hosted identity provider: authorize URL building,
// code exchange, silent refresh and logout.
package authflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/habitloop/auth-gateway/internal/authstate"
	"github.com/habitloop/auth-gateway/internal/identity"
	"github.com/habitloop/auth-gateway/internal/pkce"
	"github.com/habitloop/auth-gateway/internal/serviceerr"
	"github.com/habitloop/auth-gateway/internal/session"
)

// Mode selects the hosted page the authorize URL lands on.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

const (
	authorizePath = "/oauth2/authorize"
	tokenPath     = "/oauth2/token"
	logoutPath    = "/logout"

	scopes = "email openid profile"

	// refreshLeeway is how close to expiry a stored session is still trusted
	// without a refresh round-trip.
	refreshLeeway = 60 * time.Second

	maxErrorBody = 8 << 10
)

// Config carries the provider settings the manager needs. All fields except
// LogoutRedirectURI are required.
type Config struct {
	ProviderDomain    string
	ClientID          string
	RedirectURI       string
	LogoutRedirectURI string
}

type Manager struct {
	store  session.Store
	states session.StateCache
	pkce   pkce.Source

	httpClient *http.Client
	now        func() time.Time

	domain            string
	clientID          string
	redirectURI       *url.URL
	logoutRedirectURI *url.URL
}

func NewManager(cfg Config, store session.Store, states session.StateCache, httpClient *http.Client) (*Manager, error) {
	if cfg.ProviderDomain == "" || cfg.ClientID == "" || cfg.RedirectURI == "" {
		return nil, serviceerr.ErrConfigurationMissing
	}

	redirectURI, err := url.Parse(cfg.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URI: %w", err)
	}

	logoutRedirect := cfg.LogoutRedirectURI
	if logoutRedirect == "" {
		logoutRedirect = redirectURI.Scheme + "://" + redirectURI.Host + "/"
	}

	logoutRedirectURI, err := url.Parse(logoutRedirect)
	if err != nil {
		return nil, fmt.Errorf("parsing logout redirect URI: %w", err)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Manager{
		store:             store,
		states:            states,
		httpClient:        httpClient,
		now:               time.Now,
		domain:            strings.TrimSuffix(cfg.ProviderDomain, "/"),
		clientID:          cfg.ClientID,
		redirectURI:       redirectURI,
		logoutRedirectURI: logoutRedirectURI,
	}, nil
}

// AuthorizeURL builds the provider authorization request for a new login
// attempt and caches its redirect state. Only one attempt is in flight per
// profile: caching overwrites any previous attempt, abandoning it.
func (m *Manager) AuthorizeURL(ctx context.Context, mode Mode, origin, redirectPath string) (string, error) {
	artifact, err := m.pkce.CreateArtifact()
	if err != nil {
		return "", err
	}

	encoded := authstate.Encode(authstate.RedirectState{
		CodeVerifier: artifact.Verifier,
		RedirectPath: redirectPath,
	})

	if err := m.states.Store(ctx, encoded); err != nil {
		return "", fmt.Errorf("caching login state: %w", err)
	}

	u, err := url.Parse(m.domain + authorizePath)
	if err != nil {
		return "", fmt.Errorf("parsing authorization endpoint url: %w", err)
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", m.clientID)
	q.Set("redirect_uri", m.resolveRedirectURI(origin))
	q.Set("scope", scopes)
	q.Set("state", encoded)
	q.Set("code_challenge_method", artifact.Method)
	q.Set("code_challenge", artifact.Challenge)
	if mode == ModeRegister {
		q.Set("screen_hint", "signup")
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// resolveRedirectURI prefers a same-origin redirect URI when the configured
// one points at a different scheme+host than the serving origin. This keeps a
// stale URI baked into the config of one environment from sending callbacks
// to another.
func (m *Manager) resolveRedirectURI(origin string) string {
	if origin == "" {
		return m.redirectURI.String()
	}

	o, err := url.Parse(origin)
	if err != nil || o.Scheme == "" || o.Host == "" {
		return m.redirectURI.String()
	}

	if o.Scheme == m.redirectURI.Scheme && o.Host == m.redirectURI.Host {
		return m.redirectURI.String()
	}

	derived := *m.redirectURI
	derived.Scheme = o.Scheme
	derived.Host = o.Host

	return derived.String()
}

// LoginResult is the outcome of a completed code exchange.
type LoginResult struct {
	Session      session.Session
	User         identity.User
	RedirectPath string
}

// ExchangeCode redeems the authorization code returned by the provider. The
// cached state is authoritative; when the provider also returned a state
// parameter both must carry the same verifier, or the exchange is rejected
// before any network call. origin is the serving origin of the callback
// request; the token request must carry the same redirect_uri the authorize
// leg used, so both legs resolve it from the origin the same way.
func (m *Manager) ExchangeCode(ctx context.Context, code, stateParam, origin string) (LoginResult, error) {
	var cached, incoming *authstate.RedirectState

	cachedToken, ok, err := m.states.Load(ctx)
	if err != nil {
		return LoginResult{}, fmt.Errorf("loading cached login state: %w", err)
	}
	if ok {
		if st, err := authstate.Decode(cachedToken); err == nil {
			cached = &st
		} else {
			slogctx.Warn(ctx, "Cached login state did not decode", "error", err)
		}
	}

	if stateParam != "" {
		if st, err := authstate.Decode(stateParam); err == nil {
			incoming = &st
		} else {
			slogctx.Warn(ctx, "Returned state parameter did not decode", "error", err)
		}
	}

	switch {
	case cached == nil && incoming == nil:
		return LoginResult{}, serviceerr.ErrMissingPKCEState
	case cached != nil && incoming != nil && cached.CodeVerifier != incoming.CodeVerifier:
		// stale tab or forged redirect
		return LoginResult{}, serviceerr.ErrStateMismatch
	}

	state := cached
	if state == nil {
		state = incoming
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", m.clientID)
	form.Set("redirect_uri", m.resolveRedirectURI(origin))
	form.Set("code_verifier", state.CodeVerifier)

	tokens, err := m.token(ctx, form)
	if err != nil {
		return LoginResult{}, err
	}

	sess, user, err := m.sessionFromTokens(tokens)
	if err != nil {
		return LoginResult{}, err
	}

	if err := m.store.Persist(ctx, sess); err != nil {
		return LoginResult{}, fmt.Errorf("persisting session: %w", err)
	}

	// the verifier is single-use; it must not be replayable into a second exchange
	if err := m.states.Clear(ctx); err != nil {
		slogctx.Warn(ctx, "Could not clear login state after exchange", "error", err)
	}

	slogctx.Info(ctx, "Exchanged the auth code for tokens")

	return LoginResult{
		Session:      sess,
		User:         user,
		RedirectPath: state.RedirectPath,
	}, nil
}

// RefreshResult is the outcome of a refresh grant.
type RefreshResult struct {
	Session session.Session
	User    identity.User
}

// Refresh redeems a refresh token for a new token set and persists it. A
// response without a refresh token leaves the new session with none; the old
// token is never carried over.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", m.clientID)

	tokens, err := m.token(ctx, form)
	if err != nil {
		return RefreshResult{}, err
	}

	sess, user, err := m.sessionFromTokens(tokens)
	if err != nil {
		return RefreshResult{}, err
	}

	if err := m.store.Persist(ctx, sess); err != nil {
		return RefreshResult{}, fmt.Errorf("persisting session: %w", err)
	}

	return RefreshResult{Session: sess, User: user}, nil
}

// Logout clears the stored session and returns the provider logout URL to
// send the browser to.
func (m *Manager) Logout(ctx context.Context, origin string) (string, error) {
	if err := m.store.Clear(ctx); err != nil {
		return "", fmt.Errorf("clearing session: %w", err)
	}

	return m.LogoutURL(origin), nil
}

// LogoutURL builds the provider logout endpoint URL.
func (m *Manager) LogoutURL(origin string) string {
	u, err := url.Parse(m.domain + logoutPath)
	if err != nil {
		return m.domain + logoutPath
	}

	logoutURI := m.logoutRedirectURI.String()
	if o, err := url.Parse(origin); err == nil && o.Scheme != "" && o.Host != "" &&
		(o.Scheme != m.logoutRedirectURI.Scheme || o.Host != m.logoutRedirectURI.Host) {
		derived := *m.logoutRedirectURI
		derived.Scheme = o.Scheme
		derived.Host = o.Host
		logoutURI = derived.String()
	}

	q := u.Query()
	q.Set("client_id", m.clientID)
	q.Set("logout_uri", logoutURI)
	u.RawQuery = q.Encode()

	return u.String()
}

type tokenResponse struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (m *Manager) token(ctx context.Context, form url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.domain+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return tokenResponse{}, &serviceerr.TokenExchangeError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return tokenResponse{}, fmt.Errorf("decoding token response: %w", err)
	}

	return tokens, nil
}

// sessionFromTokens validates the token response and derives the session and
// user from it. The expiry always comes from expires_in, never from any claim
// inside the tokens.
func (m *Manager) sessionFromTokens(tokens tokenResponse) (session.Session, identity.User, error) {
	if tokens.IDToken == "" || tokens.AccessToken == "" {
		return session.Session{}, identity.User{}, serviceerr.ErrInvalidTokenResponse
	}

	user, err := identity.FromIDToken(tokens.IDToken)
	if err != nil {
		return session.Session{}, identity.User{}, fmt.Errorf("%w: %w", serviceerr.ErrInvalidTokenResponse, err)
	}

	sess := session.Session{
		IDToken:      tokens.IDToken,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(tokens.ExpiresIn) * time.Second).UnixMilli(),
	}

	return sess, user, nil
}
