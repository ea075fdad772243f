package companies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-saas/helios/internal/shared"
)

type mockRepo struct {
	companies map[int64]Company
	settings  map[int64]Settings
	nextID    int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{companies: map[int64]Company{}, settings: map[int64]Settings{}, nextID: 1}
}

func (m *mockRepo) List(_ context.Context, filters ListFilters) ([]Company, int, error) {
	var out []Company
	for _, c := range m.companies {
		if filters.IsActive != nil && c.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return Company{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) Create(_ context.Context, name, slug, email string) (Company, error) {
	for _, c := range m.companies {
		if c.Slug == slug {
			return Company{}, shared.ErrDuplicate
		}
	}
	c := Company{ID: m.nextID, Name: name, Slug: slug, Email: email, IsActive: true}
	m.nextID++
	m.companies[c.ID] = c
	m.settings[c.ID] = Settings{}
	return c, nil
}

func (m *mockRepo) Update(_ context.Context, id int64, name, email string, isActive bool) (Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return Company{}, shared.ErrNotFound
	}
	c.Name, c.Email, c.IsActive = name, email, isActive
	m.companies[id] = c
	return c, nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.companies[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.companies, id)
	return nil
}

func (m *mockRepo) GetSettings(_ context.Context, id int64) (Settings, error) {
	s, ok := m.settings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (m *mockRepo) UpdateSettings(_ context.Context, id int64, settings Settings) error {
	if _, ok := m.settings[id]; !ok {
		return shared.ErrNotFound
	}
	m.settings[id] = settings
	return nil
}

func TestCreateDerivesSlug(t *testing.T) {
	svc := NewService(newMockRepo())

	c, err := svc.Create(context.Background(), "Acme Widgets, Inc.", "", "ops@acme.test")
	require.NoError(t, err)
	assert.Equal(t, "acme-widgets-inc", c.Slug)
	assert.True(t, c.IsActive)
}

func TestCreateRejectsBadSlug(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Create(context.Background(), "Acme", "Not A Slug!", "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDuplicateSlug(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Create(context.Background(), "Acme", "acme", "")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "Acme Two", "acme", "")
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateRequiresName(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	c, err := svc.Create(context.Background(), "Acme", "acme", "")
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), c.ID, "  ", "", true)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSettingsRoundTrip(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	c, err := svc.Create(context.Background(), "Acme", "acme", "")
	require.NoError(t, err)

	got, err := svc.UpdateSettings(context.Background(), c.ID, Settings{"timezone": "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", got["timezone"])

	// Nil settings replace the blob with an empty object, not a null.
	got, err = svc.UpdateSettings(context.Background(), c.ID, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSettingsUnknownCompany(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.GetSettings(context.Background(), 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
