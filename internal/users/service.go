package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/helios-saas/helios/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, email, name, passwordHash string) (User, error)
	Update(ctx context.Context, id int64, name string, isActive bool) (User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

// Service handles user management business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns users matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]User, shared.Pagination, error) {
	users, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a user with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, email, name, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return User{}, fmt.Errorf("%w: email and name required", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, email, name, string(hash))
}

// Update changes the user's name and active flag.
func (s *Service) Update(ctx context.Context, id int64, name string, isActive bool) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, fmt.Errorf("%w: name required", shared.ErrValidation)
	}
	return s.repo.Update(ctx, id, name, isActive)
}

// ChangePassword replaces the user's password.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, id, string(hash))
}

// Delete deactivates and soft-deletes the user.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
