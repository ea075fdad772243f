package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/helios-saas/helios/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login verifies credentials, issues a bearer token and records the session.
func (s *Service) Login(ctx context.Context, email, password, ip, ua string) (*User, string, time.Time, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, expiresAt, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := s.repo.CreateSession(ctx, Session{
		ID:        token,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		IP:        ip,
		UserAgent: ua,
	}); err != nil {
		// Keep token issuance and the audit row consistent.
		_ = s.tokens.Revoke(ctx, token)
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// Logout invalidates the bearer token and drops its session record.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, token)
}

// Resolve maps a bearer token to a user id. Zero means unauthenticated.
func (s *Service) Resolve(ctx context.Context, token string) (int64, error) {
	return s.tokens.Resolve(ctx, token)
}

// Sessions lists a user's sessions, newest first.
func (s *Service) Sessions(ctx context.Context, userID int64) ([]Session, error) {
	return s.repo.ListSessions(ctx, userID)
}

// RevokeSession invalidates a session by id, wherever it was issued.
func (s *Service) RevokeSession(ctx context.Context, id string) error {
	if _, err := s.repo.GetSession(ctx, id); err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, id)
}
