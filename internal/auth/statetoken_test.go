package auth

import (
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

func newTestSigner(ttl time.Duration) *StateSigner {
	return &StateSigner{Secret: []byte("test-state-secret"), Issuer: "wenpai-test", TTL: ttl}
}

func TestStateSigner_RoundTrip(t *testing.T) {
	s := newTestSigner(5 * time.Minute)
	tok, err := s.Sign(StateClaims{SessionID: "sid-1", ReturnTo: "/editor", Nonce: "n1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := s.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.SessionID != "sid-1" || claims.ReturnTo != "/editor" || claims.Nonce != "n1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestStateSigner_WrongSecret(t *testing.T) {
	s := newTestSigner(5 * time.Minute)
	tok, err := s.Sign(StateClaims{SessionID: "sid-1", ReturnTo: "/"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	other := &StateSigner{Secret: []byte("different"), Issuer: "wenpai-test"}
	if _, err := other.Parse(tok); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestStateSigner_Expired(t *testing.T) {
	s := newTestSigner(5 * time.Minute)
	// Leeway is 30s, so an hour-old expiry is well past it.
	past := time.Now().UTC().Add(-time.Hour)
	raw := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss": s.Issuer,
		"aud": stateAudience,
		"iat": past.Add(-time.Minute).Unix(),
		"exp": past.Unix(),
		"sid": "sid-1",
	})
	tok, err := raw.SignedString(s.Secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Parse(tok); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for expired token, got %v", err)
	}
}

func TestStateSigner_WrongIssuer(t *testing.T) {
	s := newTestSigner(5 * time.Minute)
	tok, err := s.Sign(StateClaims{SessionID: "sid-1"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	other := &StateSigner{Secret: s.Secret, Issuer: "someone-else"}
	if _, err := other.Parse(tok); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for wrong issuer, got %v", err)
	}
}

func TestStateSigner_Garbage(t *testing.T) {
	s := newTestSigner(5 * time.Minute)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := s.Parse(tok); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("Parse(%q): expected ErrInvalidState, got %v", tok, err)
		}
	}
}
