package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/helios-saas/helios/internal/shared"
)

// RepositoryPort defines the persistence surface the service depends on.
type RepositoryPort interface {
	ListPages(ctx context.Context, publishedOnly bool) ([]Page, error)
	GetPageBySlug(ctx context.Context, slug string) (Page, error)
	CreatePage(ctx context.Context, p Page) (Page, error)
	UpdatePage(ctx context.Context, slug string, p Page) (Page, error)
	DeletePage(ctx context.Context, slug string) error

	ListSettings(ctx context.Context) ([]Setting, error)
	GetSetting(ctx context.Context, key string) (Setting, error)
	PutSetting(ctx context.Context, key, value string) (Setting, error)
	DeleteSetting(ctx context.Context, key string) error
}

// Service manages pages and global settings.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	titleCaser  = cases.Title(language.English)
)

// ListPages returns pages; drafts are included only when includeDrafts is
// set.
func (s *Service) ListPages(ctx context.Context, includeDrafts bool) ([]Page, error) {
	return s.repo.ListPages(ctx, !includeDrafts)
}

// GetPage fetches a page by slug.
func (s *Service) GetPage(ctx context.Context, slug string) (Page, error) {
	return s.repo.GetPageBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

// CreatePage registers a page. A missing title is derived from the slug,
// so "refund-policy" becomes "Refund Policy".
func (s *Service) CreatePage(ctx context.Context, slug, title, body string, published bool) (Page, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return Page{}, fmt.Errorf("%w: slug must be lowercase letters, digits and hyphens", shared.ErrValidation)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = titleCaser.String(strings.ReplaceAll(slug, "-", " "))
	}
	return s.repo.CreatePage(ctx, Page{
		Slug:      slug,
		Title:     title,
		Body:      body,
		Published: published,
	})
}

// UpdatePage changes a page's content or publication state.
func (s *Service) UpdatePage(ctx context.Context, slug, title, body string, published bool) (Page, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	title = strings.TrimSpace(title)
	if title == "" {
		return Page{}, fmt.Errorf("%w: page title required", shared.ErrValidation)
	}
	return s.repo.UpdatePage(ctx, slug, Page{Title: title, Body: body, Published: published})
}

// DeletePage removes a page.
func (s *Service) DeletePage(ctx context.Context, slug string) error {
	return s.repo.DeletePage(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

var settingKeyPattern = regexp.MustCompile(`^[a-z0-9_.]+$`)

// ListSettings returns all global settings.
func (s *Service) ListSettings(ctx context.Context) ([]Setting, error) {
	return s.repo.ListSettings(ctx)
}

// GetSetting fetches one setting.
func (s *Service) GetSetting(ctx context.Context, key string) (Setting, error) {
	return s.repo.GetSetting(ctx, strings.TrimSpace(key))
}

// PutSetting creates or replaces a setting value.
func (s *Service) PutSetting(ctx context.Context, key, value string) (Setting, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !settingKeyPattern.MatchString(key) {
		return Setting{}, fmt.Errorf("%w: setting key must be lowercase letters, digits, dots and underscores", shared.ErrValidation)
	}
	return s.repo.PutSetting(ctx, key, value)
}

// DeleteSetting removes a setting.
func (s *Service) DeleteSetting(ctx context.Context, key string) error {
	return s.repo.DeleteSetting(ctx, strings.TrimSpace(key))
}
