package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/auth"
)

// AuthService handles organizer login, token checks and logout.
type AuthService struct {
	credentials *auth.Credentials
	tokens      *auth.TokenService
	logger      *slog.Logger
}

func NewAuthService(credentials *auth.Credentials, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		credentials: credentials,
		tokens:      tokens,
		logger:      logger,
	}
}

// Login checks the credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, login, password string) (*auth.Token, error) {
	if err := s.credentials.Check(login, password); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("failed login attempt", slog.String("login", login))
			return nil, apperror.Unauthorized("invalid login or password")
		}
		return nil, fmt.Errorf("service/auth: checking credentials: %w", err)
	}

	token, err := s.tokens.Generate(login)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token: %w", err)
	}

	s.logger.Info("organizer logged in", slog.String("login", login))
	return token, nil
}

// Validate reports whether tokenStr is currently accepted. A bad token is
// not an error here, only a false answer.
func (s *AuthService) Validate(ctx context.Context, tokenStr string) bool {
	if tokenStr == "" {
		return false
	}
	_, err := s.tokens.Validate(ctx, tokenStr)
	return err == nil
}

// Logout revokes tokenStr until it expires.
func (s *AuthService) Logout(ctx context.Context, tokenStr string) error {
	if err := s.tokens.Revoke(ctx, tokenStr); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}
	s.logger.Info("organizer logged out")
	return nil
}
