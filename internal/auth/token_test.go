package auth

import (
	"testing"
	"time"
)

func newTestIssuer(clock func() time.Time) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "veshchi-auth",
		Audience:      "veshchi-api",
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
}

func TestIssueAndValidateTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer(func() time.Time { return time.Unix(1750000000, 0) })

	token, expiresIn, err := issuer.IssueToken(&User{ID: 42, Username: "alice"})
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}
	if expiresIn != 3600 {
		t.Fatalf("expected 3600s expiry, got %d", expiresIn)
	}

	userID, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected validate error: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected subject 42, got %d", userID)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	issued := time.Unix(1750000000, 0)
	issuer := newTestIssuer(func() time.Time { return issued })

	token, _, err := issuer.IssueToken(&User{ID: 7})
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	late := newTestIssuer(func() time.Time { return issued.Add(2 * time.Hour) })
	if _, err := late.ValidateToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	issuer := newTestIssuer(nil)
	token, _, err := issuer.IssueToken(&User{ID: 7})
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	foreign := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("other-secret"),
		Issuer:        "veshchi-auth",
		Audience:      "veshchi-api",
	})
	if _, err := foreign.ValidateToken(token); err == nil {
		t.Fatalf("expected foreign-signed token to be rejected")
	}
}

func TestIssueTokenRequiresUser(t *testing.T) {
	issuer := newTestIssuer(nil)
	if _, _, err := issuer.IssueToken(nil); err == nil {
		t.Fatalf("expected nil user to be rejected")
	}
	if _, _, err := issuer.IssueToken(&User{}); err == nil {
		t.Fatalf("expected zero user id to be rejected")
	}
}
