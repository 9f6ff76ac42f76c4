package session

import "time"

// Session is the token set for the current signed-in profile. The Store owns
// it exclusively and always replaces it wholesale; a partial update is never
// written.
type Session struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"` // empty when the provider issued none
	ExpiresAt    int64  `json:"expires_at"`              // unix milliseconds, from the token response expires_in
}

// Expiry returns ExpiresAt as a time.
func (s Session) Expiry() time.Time {
	return time.UnixMilli(s.ExpiresAt)
}

// ExpiresWithin reports whether the session expires before now+leeway.
func (s Session) ExpiresWithin(now time.Time, leeway time.Duration) bool {
	return !s.Expiry().After(now.Add(leeway))
}
