package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/habitloop/auth-gateway/internal/authflow"
	"github.com/habitloop/auth-gateway/internal/identity"
	"github.com/habitloop/auth-gateway/internal/serviceerr"
)

// authHandler serves the browser-facing auth endpoints. All session decisions
// go through the controller; the handlers only translate HTTP.
type authHandler struct {
	controller *authflow.Controller
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta http-equiv="refresh" content="5;url=/">
  <title>Sign-in failed</title>
</head>
<body>
  <h1>Sign-in failed</h1>
  <p>{{.Message}}</p>
  <p>You will be taken back <a href="/">home</a> in a few seconds.</p>
</body>
</html>
`))

func (h *authHandler) beginLogin(mode authflow.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		redirectPath := safeRedirectPath(r.URL.Query().Get("redirect"))

		u, err := h.controller.BeginLogin(ctx, mode, requestOrigin(r), redirectPath)
		if err != nil {
			slogctx.Error(ctx, "Could not build the authorize URL", "error", err)
			h.renderError(ctx, w, http.StatusInternalServerError, "We could not start the sign-in. Please try again.")

			return
		}

		http.Redirect(w, r, u, http.StatusFound)
	}
}

func (h *authHandler) completeLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	// the provider reports a denied or failed authorization via error params
	if errCode := q.Get("error"); errCode != "" {
		msg := q.Get("error_description")
		if msg == "" {
			msg = errCode
		}

		slogctx.Warn(ctx, "Authorization was rejected by the provider", "error", errCode)
		h.renderError(ctx, w, http.StatusBadRequest, msg)

		return
	}

	path, err := h.controller.CompleteLogin(ctx, q.Get("code"), q.Get("state"), requestOrigin(r))
	if err != nil {
		slogctx.Error(ctx, "Could not complete the login", "error", err)

		status, msg := loginFailure(err)
		h.renderError(ctx, w, status, msg)

		return
	}

	http.Redirect(w, r, path, http.StatusFound)
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.controller.Logout(ctx, requestOrigin(r))
	if err != nil {
		slogctx.Error(ctx, "Could not log out", "error", err)
		h.renderError(ctx, w, http.StatusInternalServerError, "We could not log you out. Please try again.")

		return
	}

	http.Redirect(w, r, u, http.StatusFound)
}

func (h *authHandler) currentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// a near-expiry session gets refreshed on the way; failures degrade to
	// anonymous and are never surfaced to the caller
	if err := h.controller.Revalidate(ctx); err != nil {
		slogctx.Info(ctx, "Session revalidation failed", "error", err)
	}

	type response struct {
		User      *identity.User `json:"user"`
		IsLoading bool           `json:"isLoading"`
	}

	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(response{
		User:      h.controller.CurrentUser(),
		IsLoading: h.controller.IsLoading(),
	})
	if err != nil {
		slogctx.Error(ctx, "Could not write the current user response", "error", err)
	}
}

func (h *authHandler) renderError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := errorPage.Execute(w, struct{ Message string }{Message: message}); err != nil {
		slogctx.Error(ctx, "Could not render the error page", "error", err)
	}
}

// loginFailure maps an exchange error to a status and a message safe to show
// in the browser. Callback integrity failures are the client's condition;
// only a failing token endpoint is an upstream one.
func loginFailure(err error) (int, string) {
	var exchangeErr *serviceerr.TokenExchangeError
	if errors.As(err, &exchangeErr) {
		return http.StatusBadGateway, "The identity provider rejected the sign-in."
	}

	switch {
	case errors.Is(err, serviceerr.ErrMissingPKCEState):
		return http.StatusBadRequest, "This sign-in attempt has expired. Please start again."
	case errors.Is(err, serviceerr.ErrStateMismatch):
		return http.StatusBadRequest, "This sign-in attempt is no longer valid. Please start again."
	default:
		return http.StatusBadGateway, "Something went wrong while signing you in. Please try again."
	}
}

// requestOrigin derives the scheme and host this request was served on,
// honouring a forwarding proxy.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

// safeRedirectPath keeps the post-login redirect inside the app. Anything but
// an absolute local path falls back to the root.
func safeRedirectPath(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return ""
	}

	return path
}
