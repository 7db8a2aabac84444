package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignAndVerifyRoundTripAssignsJti(t *testing.T) {
	Configure("test-secret", "dev")
	defer Configure("", "")

	token, err := SignJWT(Claims{Sub: "google:42", Email: "analyst@example.com"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := VerifyJWT(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Sub != "google:42" {
		t.Fatalf("unexpected sub: %s", claims.Sub)
	}
	if claims.Jti == "" {
		t.Fatalf("expected jti to be assigned")
	}
	if claims.ExpiresAt().IsZero() {
		t.Fatalf("expected default expiry")
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	Configure("test-secret", "dev")
	defer Configure("", "")

	token, err := SignJWT(Claims{Sub: "google:42"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(token, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := VerifyJWT(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestProductionRequiresSecret(t *testing.T) {
	Configure("", "production")
	defer Configure("", "")
	t.Setenv("JWT_SECRET", "from-environment")

	if _, err := SignJWT(Claims{Sub: "google:42"}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret in production, got %v", err)
	}
}

func TestUnconfiguredDevUsesFixedKey(t *testing.T) {
	Configure("", "dev")
	token, err := SignJWT(Claims{Sub: "google:42"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	Configure("other-secret", "dev")
	defer Configure("", "")
	if _, err := VerifyJWT(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token signed with the dev key to fail under a new secret, got %v", err)
	}
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	Configure("test-secret", "dev")
	defer Configure("", "")
	for _, token := range []string{"", "abc", "a.b", "a.b.c.d"} {
		if _, err := VerifyJWT(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("VerifyJWT(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestRevocationListExpires(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	list := NewRevocationList(func() time.Time { return now })

	list.Revoke("jti-1", now.Add(time.Hour))
	if !list.IsRevoked("jti-1") {
		t.Fatalf("expected jti-1 revoked")
	}
	if list.IsRevoked("jti-2") {
		t.Fatalf("did not expect jti-2 revoked")
	}

	now = now.Add(2 * time.Hour)
	if list.IsRevoked("jti-1") {
		t.Fatalf("expected revocation to lapse after token expiry")
	}
}
