package serviceerr

import (
	"errors"
	"fmt"
)

var ErrConfigurationMissing = errors.New("required configuration missing")
var ErrCryptoUnavailable = errors.New("secure random source unavailable")
var ErrStateDecode = errors.New("redirect state decode failed")
var ErrMissingPKCEState = errors.New("no pkce state for this login attempt")
var ErrStateMismatch = errors.New("redirect state verifier mismatch")
var ErrInvalidTokenResponse = errors.New("token response missing required fields")

// TokenExchangeError reports a non-success status from the token endpoint.
// Body carries the raw response so the failure can be shown to the user.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("token exchange failed with status %d", e.StatusCode)
	}

	return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Body)
}
