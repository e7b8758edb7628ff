// Package auth issues and checks the organizer's access tokens.
//
// AUTHENTICATION FLOW:
//  1. The admin client posts login/password to /api/auth/login
//  2. Credentials checks them against the one configured admin account
//  3. TokenService issues a signed JWT with an expiry and a unique ID
//  4. Mutating API calls send it as "Authorization: Bearer <jwt>";
//     RequireAuth validates it and stores the subject in the request context
//  5. Logout puts the token's ID on the Denylist until the token expires
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"admin","jti":"<uuid>","iss":"event-registration","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "event-registration"

// DefaultTTL is used when NewTokenService is given a non-positive ttl.
const DefaultTTL = 12 * time.Hour

// ErrRevoked is returned by Validate for tokens that were logged out.
var ErrRevoked = errors.New("auth: token revoked")

// TokenService handles JWT creation, validation and revocation.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	denylist Denylist
}

// Token is a freshly issued access token.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is what Validate extracts from a valid token.
type Claims struct {
	Subject   string
	ID        string
	ExpiresAt time.Time
}

// NewTokenService creates a TokenService. The secret should be at least 32
// bytes of random data in production (JWT_SECRET=$(openssl rand -hex 32)).
// A nil denylist means an in-memory one.
func NewTokenService(secret string, ttl time.Duration, denylist Denylist) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, denylist: denylist}, nil
}

// claims is the JWT payload.
type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a token for subject valid for the configured TTL.
func (s *TokenService) Generate(subject string) (*Token, error) {
	return s.GenerateWithDuration(subject, s.ttl)
}

// GenerateWithDuration issues a token with a custom lifetime. Tests use a
// negative duration to get an already-expired token.
func (s *TokenService) GenerateWithDuration(subject string, d time.Duration) (*Token, error) {
	now := time.Now()
	expiresAt := now.Add(d)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return &Token{Value: signed, ExpiresAt: expiresAt.UTC().Truncate(time.Second)}, nil
}

// Validate parses and verifies tokenStr: signature, algorithm, issuer, expiry
// and the denylist.
func (s *TokenService) Validate(ctx context.Context, tokenStr string) (*Claims, error) {
	c, err := s.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("auth: checking denylist: %w", err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	return c, nil
}

// Revoke denylists a valid token until it expires. Revoking an already
// invalid token is a no-op.
func (s *TokenService) Revoke(ctx context.Context, tokenStr string) error {
	c, err := s.parse(tokenStr)
	if err != nil {
		return nil
	}
	return s.denylist.Revoke(ctx, c.ID, c.ExpiresAt)
}

func (s *TokenService) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	if c.ID == "" {
		return nil, fmt.Errorf("auth: token has no id")
	}

	return &Claims{
		Subject:   c.Subject,
		ID:        c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
