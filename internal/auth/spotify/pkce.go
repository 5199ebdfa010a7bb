package spotify

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GeneratePKCE generates a fresh pair of PKCE codes per RFC 7636: a
// cryptographically random code verifier and its S256 code challenge.
func GeneratePKCE() (*PKCECodes, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	return &PKCECodes{
		CodeVerifier:  verifier,
		CodeChallenge: ChallengeFromVerifier(verifier),
	}, nil
}

// generateCodeVerifier creates a 128-character URL-safe random string
// (96 random bytes, base64url without padding). RFC 7636 permits 43-128
// characters; the maximum length is used for maximum entropy.
func generateCodeVerifier() (string, error) {
	buf := make([]byte, 96)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(buf), nil
}

// ChallengeFromVerifier derives the S256 code challenge: the SHA-256 digest
// of the verifier, base64url-encoded without padding.
func ChallengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(sum[:])
}
