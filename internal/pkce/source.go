package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"github.com/habitloop/auth-gateway/internal/serviceerr"
)

const MethodS256 = "S256"

const verifierBytes = 32

// Artifact is the verifier/challenge pair for a single login attempt. It
// lives only for the redirect round-trip and must not survive the exchange.
type Artifact struct {
	Verifier  string
	Challenge string
	Method    string
}

// Source creates PKCE artifacts. The zero value reads from crypto/rand.
type Source struct {
	Rand io.Reader
}

func (s Source) reader() io.Reader {
	if s.Rand != nil {
		return s.Rand
	}

	return rand.Reader
}

// CreateArtifact returns a fresh verifier and its S256 challenge. The
// challenge is the base64url SHA-256 of the verifier's ASCII bytes.
func (s Source) CreateArtifact() (Artifact, error) {
	raw := make([]byte, verifierBytes)
	if _, err := io.ReadFull(s.reader(), raw); err != nil {
		return Artifact{}, errors.Join(serviceerr.ErrCryptoUnavailable, err)
	}

	verifier := make([]byte, base64.RawURLEncoding.EncodedLen(len(raw)))
	base64.RawURLEncoding.Encode(verifier, raw)

	sum := sha256.Sum256(verifier)
	challenge := make([]byte, base64.RawURLEncoding.EncodedLen(len(sum)))
	base64.RawURLEncoding.Encode(challenge, sum[:])

	return Artifact{
		Verifier:  string(verifier),
		Challenge: string(challenge),
		Method:    MethodS256,
	}, nil
}
