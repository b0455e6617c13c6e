package auth

import (
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", 7*24*time.Hour)

	raw, expiresAt, err := m.GenerateSessionToken("user-1")

	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if until := time.Until(expiresAt); until < 6*24*time.Hour {
		t.Fatalf("expiry %v is not ~7 days out", until)
	}

	claims, err := m.VerifySessionToken(raw)

	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Fatalf("got userID %q, want user-1", claims.UserID)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	raw, _, err := m.GenerateSessionToken("user-1")

	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := m.VerifySessionToken(raw); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour)
	verifier := NewManager("secret-b", time.Hour)

	raw, _, err := issuer.GenerateSessionToken("user-1")

	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := verifier.VerifySessionToken(raw); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	if _, err := m.VerifySessionToken("not-a-token"); err == nil {
		t.Fatal("malformed token accepted")
	}
}
