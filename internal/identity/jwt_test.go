package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestResolve_ValidToken(t *testing.T) {
	resolver := NewTokenResolver("test-secret")
	raw := signToken(t, "test-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "user-123",
	})

	id := resolver.Resolve("Bearer " + raw)

	if id.State != Authenticated || id.UserID != "user-123" {
		t.Errorf("Expected authenticated user-123, got %+v", id)
	}
	if id.Key() != "user-123" {
		t.Errorf("Expected storage key user-123, got %s", id.Key())
	}
}

func TestResolve_SubjectFallback(t *testing.T) {
	resolver := NewTokenResolver("test-secret")
	raw := signToken(t, "test-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-456"},
	})

	id := resolver.Resolve("Bearer " + raw)

	if id.State != Authenticated || id.UserID != "user-456" {
		t.Errorf("Expected subject fallback, got %+v", id)
	}
}

func TestResolve_MissingHeaderIsGuest(t *testing.T) {
	resolver := NewTokenResolver("test-secret")
	id := resolver.Resolve("")
	if id.State != Guest {
		t.Errorf("Expected guest, got %+v", id)
	}
	if id.Key() != GuestKey {
		t.Errorf("Expected guest key, got %s", id.Key())
	}
}

func TestResolve_BadSignatureIsGuest(t *testing.T) {
	resolver := NewTokenResolver("test-secret")
	raw := signToken(t, "wrong-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
	})

	if id := resolver.Resolve("Bearer " + raw); id.State != Guest {
		t.Errorf("Expected guest for bad signature, got %+v", id)
	}
}

func TestResolve_EmptySecretRejectsSignedTokens(t *testing.T) {
	resolver := NewTokenResolver("")
	raw := signToken(t, "", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "victim-user",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	// With no secret configured, a token signed against the empty key must
	// not impersonate an authenticated user.
	if id := resolver.Resolve("Bearer " + raw); id.State != Guest {
		t.Errorf("Expected guest when no secret is configured, got %+v", id)
	}
}

func TestResolve_ExpiredTokenIsGuest(t *testing.T) {
	resolver := NewTokenResolver("test-secret")
	raw := signToken(t, "test-secret", Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	if id := resolver.Resolve("Bearer " + raw); id.State != Guest {
		t.Errorf("Expected guest for expired token, got %+v", id)
	}
}

func TestStaticProviderWatch(t *testing.T) {
	p := NewStatic(Identity{State: Guest})

	ch := p.Watch(t.Context())

	got, ok := <-ch
	if !ok || got.State != Guest {
		t.Fatalf("Expected guest identity from watch, got %+v ok=%v", got, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("Expected channel closed after single emission")
	}
}
