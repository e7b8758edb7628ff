package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("short", time.Hour, nil); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts, err := NewTokenService("this-is-16-chars", 0, nil)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error: %v", err)
	}
	if ts.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", ts.ttl, DefaultTTL)
	}
}

// =========================================================================
// GENERATE / VALIDATE TESTS
// =========================================================================

func TestGenerate_TokenShape(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("admin")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Count(token.Value, ".") != 2 {
		t.Errorf("token %q is not header.payload.signature", token.Value)
	}
	if d := time.Until(token.ExpiresAt); d < 59*time.Minute || d > time.Hour {
		t.Errorf("ExpiresAt is %v from now, want about an hour", d)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("admin")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := ts.Validate(context.Background(), token.Value)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "admin")
	}
	if claims.ID == "" {
		t.Error("token has no ID")
	}
}

func TestGenerate_UniqueIDs(t *testing.T) {
	ts := newTestTokenService(t)
	ctx := context.Background()

	a, _ := ts.Generate("admin")
	b, _ := ts.Generate("admin")
	ca, err := ts.Validate(ctx, a.Value)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := ts.Validate(ctx, b.Value)
	if err != nil {
		t.Fatal(err)
	}
	if ca.ID == cb.ID {
		t.Error("two tokens share an ID; revoking one would revoke both")
	}
}

func TestValidate_Expired(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration("admin", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}
	if _, err := ts.Validate(context.Background(), token.Value); err == nil {
		t.Fatal("Validate() accepted an expired token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts := newTestTokenService(t)
	other, _ := NewTokenService("another-secret-16-chars", time.Hour, nil)

	token, _ := other.Generate("admin")
	if _, err := ts.Validate(context.Background(), token.Value); err == nil {
		t.Fatal("Validate() accepted a token signed with another secret")
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ts.Validate(context.Background(), raw); err == nil {
			t.Errorf("Validate(%q) should fail", raw)
		}
	}
}

// =========================================================================
// REVOKE TESTS
// =========================================================================

func TestRevoke_InvalidatesToken(t *testing.T) {
	ts := newTestTokenService(t)
	ctx := context.Background()

	token, _ := ts.Generate("admin")
	if err := ts.Revoke(ctx, token.Value); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	_, err := ts.Validate(ctx, token.Value)
	if !errors.Is(err, ErrRevoked) {
		t.Fatalf("Validate() error = %v, want ErrRevoked", err)
	}
}

func TestRevoke_OtherTokensStillValid(t *testing.T) {
	ts := newTestTokenService(t)
	ctx := context.Background()

	revoked, _ := ts.Generate("admin")
	kept, _ := ts.Generate("admin")
	_ = ts.Revoke(ctx, revoked.Value)

	if _, err := ts.Validate(ctx, kept.Value); err != nil {
		t.Fatalf("Validate() error = %v for a token that was not revoked", err)
	}
}

func TestRevoke_GarbageIsNoop(t *testing.T) {
	ts := newTestTokenService(t)
	if err := ts.Revoke(context.Background(), "garbage"); err != nil {
		t.Fatalf("Revoke() error = %v, want nil", err)
	}
}
