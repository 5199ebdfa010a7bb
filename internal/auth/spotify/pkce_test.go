package spotify

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
	"testing"
)

func TestGeneratePKCE_VerifierLength(t *testing.T) {
	codes, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() error = %v", err)
	}

	// 96 random bytes encode to 128 base64url characters, the RFC 7636 maximum.
	if len(codes.CodeVerifier) != 128 {
		t.Errorf("CodeVerifier length = %d, want 128", len(codes.CodeVerifier))
	}
	if len(codes.CodeVerifier) < 43 {
		t.Errorf("CodeVerifier length = %d, below RFC 7636 minimum of 43", len(codes.CodeVerifier))
	}
}

func TestGeneratePKCE_Randomness(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		codes, err := GeneratePKCE()
		if err != nil {
			t.Fatalf("GeneratePKCE() iteration %d error = %v", i, err)
		}
		if seen[codes.CodeVerifier] {
			t.Errorf("duplicate verifier detected at iteration %d", i)
		}
		seen[codes.CodeVerifier] = true
	}
}

func TestChallengeFromVerifier(t *testing.T) {
	tests := []struct {
		name     string
		verifier string
	}{
		{
			name:     "simple verifier",
			verifier: "test-verifier-string-for-pkce-challenge-generation",
		},
		{
			name:     "unreserved character set",
			verifier: "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := sha256.Sum256([]byte(tt.verifier))
			want := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(sum[:])

			if got := ChallengeFromVerifier(tt.verifier); got != want {
				t.Errorf("ChallengeFromVerifier() = %v, want %v", got, want)
			}
		})
	}
}

func TestGeneratePKCE_ChallengeProperties(t *testing.T) {
	codes, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() error = %v", err)
	}

	if codes.CodeChallenge == codes.CodeVerifier {
		t.Error("CodeChallenge equals CodeVerifier; the S256 transform was not applied")
	}

	if codes.CodeChallenge != ChallengeFromVerifier(codes.CodeVerifier) {
		t.Error("CodeChallenge is not the S256 transform of CodeVerifier")
	}

	// SHA-256 produces 32 bytes; base64url without padding is 43 characters.
	if len(codes.CodeChallenge) != 43 {
		t.Errorf("CodeChallenge length = %d, want 43", len(codes.CodeChallenge))
	}

	validBase64URL := regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	if !validBase64URL.MatchString(codes.CodeChallenge) {
		t.Errorf("CodeChallenge contains invalid base64url characters: %s", codes.CodeChallenge)
	}
	if !validBase64URL.MatchString(codes.CodeVerifier) {
		t.Errorf("CodeVerifier contains invalid base64url characters: %s", codes.CodeVerifier)
	}
}
