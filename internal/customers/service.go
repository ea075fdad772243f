package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/helios-saas/helios/internal/shared"
)

// RepositoryPort defines data access methods for customers.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id int64, name, email, phone string, isActive bool) (Customer, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles customer business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the company's customers.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Customer, shared.Pagination, error) {
	if filters.CompanyID <= 0 {
		return nil, shared.Pagination{}, fmt.Errorf("%w: company id required", shared.ErrValidation)
	}
	customers, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return customers, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get fetches a customer by id.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a customer under a company.
func (s *Service) Create(ctx context.Context, companyID int64, name, email, phone string) (Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" {
		return Customer{}, fmt.Errorf("%w: customer name and email required", shared.ErrValidation)
	}
	return s.repo.Create(ctx, Customer{
		CompanyID: companyID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(phone),
	})
}

// Update changes a customer profile.
func (s *Service) Update(ctx context.Context, id int64, name, email, phone string, isActive bool) (Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" {
		return Customer{}, fmt.Errorf("%w: customer name and email required", shared.ErrValidation)
	}
	return s.repo.Update(ctx, id, name, email, strings.TrimSpace(phone), isActive)
}

// Delete soft-deletes a customer.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
