package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/auth-gateway/internal/serviceerr"
)

func TestSource_CreateArtifact(t *testing.T) {
	p := Source{}

	artifact, err := p.CreateArtifact()
	require.NoError(t, err)

	assert.NotEmpty(t, artifact.Verifier, "Empty pkce verifier")
	assert.NotEmpty(t, artifact.Challenge, "Empty pkce challenge")
	assert.Equal(t, MethodS256, artifact.Method, "Unexpected PKCE method")

	// 32 random bytes encode to 43 unpadded base64url characters
	assert.Len(t, artifact.Verifier, 43)
	assert.NotContains(t, artifact.Verifier, "=")
	assert.NotContains(t, artifact.Verifier, "+")
	assert.NotContains(t, artifact.Verifier, "/")

	sum := sha256.Sum256([]byte(artifact.Verifier))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), artifact.Challenge)
}

func TestSource_CreateArtifactUnique(t *testing.T) {
	p := Source{}

	first, err := p.CreateArtifact()
	require.NoError(t, err)

	second, err := p.CreateArtifact()
	require.NoError(t, err)

	assert.NotEqual(t, first.Verifier, second.Verifier)
	assert.NotEqual(t, first.Challenge, second.Challenge)
}

func TestSource_CreateArtifactRandFailure(t *testing.T) {
	p := Source{Rand: failingReader{}}

	_, err := p.CreateArtifact()
	assert.ErrorIs(t, err, serviceerr.ErrCryptoUnavailable)
}

func TestSource_CreateArtifactShortRead(t *testing.T) {
	p := Source{Rand: strings.NewReader("too short")}

	_, err := p.CreateArtifact()
	assert.ErrorIs(t, err, serviceerr.ErrCryptoUnavailable)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}
