package canva

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	stateBytes    = 48
	verifierBytes = 64
)

// NewState returns an unguessable handshake state value.
func NewState() (string, error) {
	return randomToken(stateBytes)
}

// NewCodeVerifier returns a PKCE code verifier. 64 random bytes encode to 86
// characters, inside the 43..128 range allowed by RFC 7636.
func NewCodeVerifier() (string, error) {
	return randomToken(verifierBytes)
}

// CodeChallenge is the S256 challenge for verifier.
func CodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[canva.randomToken] %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
