package auth

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/murexstreams/murex/internal/errors"
)

func TestTokensRoundtrip(t *testing.T) {
	tokens, err := NewTokens("test secret")
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}

	signed, expires, err := tokens.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if signed == "" {
		t.Fatal("Issue() returned an empty token")
	}

	remaining := time.Until(expires)
	if remaining < TokenTTL-time.Minute || remaining > TokenTTL {
		t.Errorf("expiry in %v, want about %v", remaining, TokenTTL)
	}

	userID, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if userID != "user-123" {
		t.Errorf("Parse() = %q, want %q", userID, "user-123")
	}
}

func TestTokensRejectsExpired(t *testing.T) {
	tokens, err := NewTokens("test secret")
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}

	signed, _, err := tokens.issue("user-123", -time.Hour)
	if err != nil {
		t.Fatalf("issue() error = %v", err)
	}

	if _, err := tokens.Parse(signed); !stderrors.Is(err, errors.ErrNotAuthenticated) {
		t.Errorf("Parse(expired) error = %v, want ErrNotAuthenticated", err)
	}
}

func TestTokensRejectsWrongSecret(t *testing.T) {
	issuer, err := NewTokens("secret one")
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}
	verifier, err := NewTokens("secret two")
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}

	signed, _, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := verifier.Parse(signed); !stderrors.Is(err, errors.ErrNotAuthenticated) {
		t.Errorf("Parse() with wrong secret error = %v, want ErrNotAuthenticated", err)
	}
}

func TestTokensRejectsGarbage(t *testing.T) {
	tokens, err := NewTokens("test secret")
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}

	for _, bad := range []string{"", "not.a.token", "aaaa.bbbb.cccc"} {
		if _, err := tokens.Parse(bad); !stderrors.Is(err, errors.ErrNotAuthenticated) {
			t.Errorf("Parse(%q) error = %v, want ErrNotAuthenticated", bad, err)
		}
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens(""); !stderrors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("NewTokens(\"\") error = %v, want ErrInvalidConfig", err)
	}
}
