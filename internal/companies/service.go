package companies

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/helios-saas/helios/internal/shared"
)

// RepositoryPort defines data access methods for companies.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]Company, int, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, name, slug, email string) (Company, error)
	Update(ctx context.Context, id int64, name, email string, isActive bool) (Company, error)
	Delete(ctx context.Context, id int64) error
	GetSettings(ctx context.Context, id int64) (Settings, error)
	UpdateSettings(ctx context.Context, id int64, settings Settings) error
}

// Service handles company business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns companies matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Company, shared.Pagination, error) {
	companies, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return companies, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get fetches a company by id.
func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a tenant. The slug defaults to a URL-safe form of the name.
func (s *Service) Create(ctx context.Context, name, slug, email string) (Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Company{}, fmt.Errorf("%w: company name required", shared.ErrValidation)
	}
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		slug = slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return Company{}, fmt.Errorf("%w: invalid slug", shared.ErrValidation)
	}
	return s.repo.Create(ctx, name, slug, strings.TrimSpace(email))
}

// Update changes the company profile.
func (s *Service) Update(ctx context.Context, id int64, name, email string, isActive bool) (Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Company{}, fmt.Errorf("%w: company name required", shared.ErrValidation)
	}
	return s.repo.Update(ctx, id, name, strings.TrimSpace(email), isActive)
}

// Delete soft-deletes a company.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// GetSettings returns the company's settings blob.
func (s *Service) GetSettings(ctx context.Context, id int64) (Settings, error) {
	return s.repo.GetSettings(ctx, id)
}

// UpdateSettings replaces the company's settings blob.
func (s *Service) UpdateSettings(ctx context.Context, id int64, settings Settings) (Settings, error) {
	if settings == nil {
		settings = Settings{}
	}
	if err := s.repo.UpdateSettings(ctx, id, settings); err != nil {
		return nil, err
	}
	return s.repo.GetSettings(ctx, id)
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
