// Package authstate encodes the opaque state value carried through the
// identity provider redirect. The encoding is reversible and unsigned, so it
// is not a security boundary by itself: forgery protection comes from
// comparing the decoded verifier against the value the same login attempt
// cached in short-lived storage.
package authstate

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/habitloop/auth-gateway/internal/serviceerr"
)

// RedirectState travels through the provider's state query parameter and is
// also cached locally for the duration of one login attempt.
type RedirectState struct {
	CodeVerifier string `json:"verifier"`
	RedirectPath string `json:"redirect,omitempty"`
}

// Encode serializes the state to an opaque base64url token.
func Encode(state RedirectState) string {
	// a struct of two strings cannot fail to marshal
	raw, _ := json.Marshal(state)

	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode reverses Encode. Any malformed input yields ErrStateDecode; callers
// must treat that as "state untrustworthy", never as a retryable condition.
func Decode(token string) (RedirectState, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return RedirectState{}, errors.Join(serviceerr.ErrStateDecode, err)
	}

	var state RedirectState
	if err := json.Unmarshal(raw, &state); err != nil {
		return RedirectState{}, errors.Join(serviceerr.ErrStateDecode, err)
	}

	if state.CodeVerifier == "" {
		return RedirectState{}, serviceerr.ErrStateDecode
	}

	return state, nil
}
