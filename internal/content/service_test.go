package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-saas/helios/internal/shared"
)

type mockRepo struct {
	pages    map[string]Page
	settings map[string]Setting
	nextID   int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{pages: map[string]Page{}, settings: map[string]Setting{}, nextID: 1}
}

func (m *mockRepo) ListPages(_ context.Context, publishedOnly bool) ([]Page, error) {
	var out []Page
	for _, p := range m.pages {
		if publishedOnly && !p.Published {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepo) GetPageBySlug(_ context.Context, slug string) (Page, error) {
	p, ok := m.pages[slug]
	if !ok {
		return Page{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) CreatePage(_ context.Context, p Page) (Page, error) {
	if _, ok := m.pages[p.Slug]; ok {
		return Page{}, shared.ErrDuplicate
	}
	p.ID = m.nextID
	m.nextID++
	m.pages[p.Slug] = p
	return p, nil
}

func (m *mockRepo) UpdatePage(_ context.Context, slug string, p Page) (Page, error) {
	current, ok := m.pages[slug]
	if !ok {
		return Page{}, shared.ErrNotFound
	}
	current.Title = p.Title
	current.Body = p.Body
	current.Published = p.Published
	m.pages[slug] = current
	return current, nil
}

func (m *mockRepo) DeletePage(_ context.Context, slug string) error {
	if _, ok := m.pages[slug]; !ok {
		return shared.ErrNotFound
	}
	delete(m.pages, slug)
	return nil
}

func (m *mockRepo) ListSettings(_ context.Context) ([]Setting, error) {
	var out []Setting
	for _, s := range m.settings {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockRepo) GetSetting(_ context.Context, key string) (Setting, error) {
	s, ok := m.settings[key]
	if !ok {
		return Setting{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *mockRepo) PutSetting(_ context.Context, key, value string) (Setting, error) {
	s := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	m.settings[key] = s
	return s, nil
}

func (m *mockRepo) DeleteSetting(_ context.Context, key string) error {
	delete(m.settings, key)
	return nil
}

func TestCreatePageDerivesTitleFromSlug(t *testing.T) {
	svc := NewService(newMockRepo())

	page, err := svc.CreatePage(context.Background(), "refund-policy", "", "body", true)
	require.NoError(t, err)
	assert.Equal(t, "Refund Policy", page.Title)
	assert.Equal(t, "refund-policy", page.Slug)
}

func TestCreatePageRejectsBadSlug(t *testing.T) {
	svc := NewService(newMockRepo())

	for _, slug := range []string{"", "Has Spaces", "UPPER", "trailing-", "-leading", "dots.not.ok"} {
		_, err := svc.CreatePage(context.Background(), slug, "t", "b", false)
		assert.ErrorIs(t, err, shared.ErrValidation, "slug %q", slug)
	}
}

func TestListPagesFiltersDrafts(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	_, err := svc.CreatePage(context.Background(), "about", "About", "b", true)
	require.NoError(t, err)
	_, err = svc.CreatePage(context.Background(), "draft", "Draft", "b", false)
	require.NoError(t, err)

	published, err := svc.ListPages(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, published, 1)

	all, err := svc.ListPages(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdatePageRequiresTitle(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	_, err := svc.CreatePage(context.Background(), "about", "About", "b", true)
	require.NoError(t, err)

	_, err = svc.UpdatePage(context.Background(), "about", "", "b", true)
	assert.ErrorIs(t, err, shared.ErrValidation)

	page, err := svc.UpdatePage(context.Background(), "about", "About Us", "new body", false)
	require.NoError(t, err)
	assert.Equal(t, "About Us", page.Title)
	assert.False(t, page.Published)
}

func TestPutSettingNormalizesKey(t *testing.T) {
	svc := NewService(newMockRepo())

	s, err := svc.PutSetting(context.Background(), "  Site.Name  ", "Helios")
	require.NoError(t, err)
	assert.Equal(t, "site.name", s.Key)

	_, err = svc.PutSetting(context.Background(), "bad key!", "x")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSettingRoundTrip(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.PutSetting(context.Background(), "support_email", "help@example.com")
	require.NoError(t, err)

	s, err := svc.GetSetting(context.Background(), "support_email")
	require.NoError(t, err)
	assert.Equal(t, "help@example.com", s.Value)

	require.NoError(t, svc.DeleteSetting(context.Background(), "support_email"))
	_, err = svc.GetSetting(context.Background(), "support_email")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
