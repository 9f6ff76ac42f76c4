package authflow

import (
	"context"
	"sync"

	"github.com/habitloop/auth-gateway/internal/identity"
)

// Status is the controller's session state. The only valid transitions are
//
//	Unresolved -> Resolving -> Authenticated | Anonymous
//	Authenticated -> Refreshing -> Authenticated | Anonymous
//	Authenticated -> Anonymous (explicit logout)
type Status string

const (
	StatusUnresolved    Status = "unresolved"
	StatusResolving     Status = "resolving"
	StatusRefreshing    Status = "refreshing"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// Controller owns the in-memory view of the current user and drives the
// login lifecycle. One instance exists per process; no other component reads
// or writes the session store directly.
type Controller struct {
	manager *Manager

	mu     sync.Mutex
	status Status
	user   *identity.User
}

func NewController(manager *Manager) *Controller {
	return &Controller{
		manager: manager,
		status:  StatusUnresolved,
	}
}

// Init resolves the stored session once at startup. Calling it again is a
// no-op.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusUnresolved {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusResolving
	c.mu.Unlock()

	user, err := c.manager.ResolveStoredUser(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.status = StatusAnonymous
		return err
	}

	c.setUserLocked(user)

	return nil
}

// Revalidate re-runs session resolution for an authenticated user. The
// resolver only talks to the provider when the session is near expiry, so
// calling this opportunistically is cheap.
func (c *Controller) Revalidate(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusAuthenticated {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusRefreshing
	c.mu.Unlock()

	user, err := c.manager.ResolveStoredUser(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.status = StatusAnonymous
		c.user = nil

		return err
	}

	c.setUserLocked(user)

	return nil
}

// BeginLogin returns the authorize URL to navigate the browser to. Starting a
// new login silently invalidates any in-flight attempt.
func (c *Controller) BeginLogin(ctx context.Context, mode Mode, origin, redirectPath string) (string, error) {
	return c.manager.AuthorizeURL(ctx, mode, origin, redirectPath)
}

// CompleteLogin finishes the callback leg and returns the post-login path.
// On failure the previous session state is left untouched.
func (c *Controller) CompleteLogin(ctx context.Context, code, stateParam, origin string) (string, error) {
	res, err := c.manager.ExchangeCode(ctx, code, stateParam, origin)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	user := res.User
	c.setUserLocked(&user)
	c.mu.Unlock()

	path := res.RedirectPath
	if path == "" {
		path = "/"
	}

	return path, nil
}

// Logout clears the session and returns the provider logout URL.
func (c *Controller) Logout(ctx context.Context, origin string) (string, error) {
	u, err := c.manager.Logout(ctx, origin)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.user = nil
	c.status = StatusAnonymous
	c.mu.Unlock()

	return u, nil
}

// CurrentUser returns nil until a session is resolved.
func (c *Controller) CurrentUser() *identity.User {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.user
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// IsLoading reports whether session resolution is still in progress.
func (c *Controller) IsLoading() bool {
	switch c.Status() {
	case StatusUnresolved, StatusResolving, StatusRefreshing:
		return true
	default:
		return false
	}
}

func (c *Controller) setUserLocked(user *identity.User) {
	c.user = user
	if user != nil {
		c.status = StatusAuthenticated
	} else {
		c.status = StatusAnonymous
	}
}
