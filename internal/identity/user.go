package identity

import (
	"fmt"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// User is the authenticated identity exposed to the rest of the application.
// It exists if and only if a valid (or freshly refreshed) session does.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Signature algorithms accepted when parsing provider tokens.
var sigAlgs = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.EdDSA,
}

// FromIDToken extracts the subject and email claims from an id token without
// verifying its signature. This is identity extraction for display, not a
// security check: the token came straight from the provider's token endpoint
// over TLS, and that channel is the trust boundary.
func FromIDToken(idToken string) (User, error) {
	token, err := jwt.ParseSigned(idToken, sigAlgs)
	if err != nil {
		return User{}, fmt.Errorf("parsing id token: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
	}
	if err := token.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return User{}, fmt.Errorf("decoding id token claims: %w", err)
	}

	return User{ID: claims.Subject, Email: claims.Email}, nil
}
