package customers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-saas/helios/internal/shared"
)

type mockRepo struct {
	customers map[int64]Customer
	nextID    int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{customers: map[int64]Customer{}, nextID: 1}
}

func (m *mockRepo) List(_ context.Context, filters ListFilters) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.customers {
		if c.CompanyID != filters.CompanyID {
			continue
		}
		if filters.Search != "" && !strings.Contains(c.Name, filters.Search) {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *mockRepo) Create(_ context.Context, c Customer) (Customer, error) {
	for _, existing := range m.customers {
		if existing.CompanyID == c.CompanyID && existing.Email == c.Email {
			return Customer{}, shared.ErrDuplicate
		}
	}
	c.ID = m.nextID
	c.IsActive = true
	m.nextID++
	m.customers[c.ID] = c
	return c, nil
}

func (m *mockRepo) Update(_ context.Context, id int64, name, email, phone string, isActive bool) (Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, shared.ErrNotFound
	}
	c.Name, c.Email, c.Phone, c.IsActive = name, email, phone, isActive
	m.customers[id] = c
	return c, nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.customers[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.customers, id)
	return nil
}

func TestCreateNormalizesInput(t *testing.T) {
	svc := NewService(newMockRepo())

	c, err := svc.Create(context.Background(), 1, "  Ada Lovelace ", " Ada@Acme.Test ", " 555-0100 ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", c.Name)
	assert.Equal(t, "ada@acme.test", c.Email)
	assert.Equal(t, "555-0100", c.Phone)
	assert.True(t, c.IsActive)
}

func TestCreateRequiresNameAndEmail(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Create(context.Background(), 1, "", "a@acme.test", "")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), 1, "Ada", "   ", "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDuplicateEmailWithinCompany(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Create(context.Background(), 1, "Ada", "ada@acme.test", "")
	require.NoError(t, err)

	// Same email in the same company conflicts.
	_, err = svc.Create(context.Background(), 1, "Ada Again", "ada@acme.test", "")
	assert.ErrorIs(t, err, shared.ErrDuplicate)

	// Same email under a different company is fine.
	_, err = svc.Create(context.Background(), 2, "Ada Elsewhere", "ada@acme.test", "")
	assert.NoError(t, err)
}

func TestListScopedToCompany(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	_, err := svc.Create(context.Background(), 1, "Ada", "ada@acme.test", "")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 2, "Grace", "grace@other.test", "")
	require.NoError(t, err)

	got, page, err := svc.List(context.Background(), ListFilters{CompanyID: 1, Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].Name)
	assert.Equal(t, 1, page.Total)
}

func TestListRequiresCompanyID(t *testing.T) {
	svc := NewService(newMockRepo())
	_, _, err := svc.List(context.Background(), ListFilters{})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateUnknownCustomer(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Update(context.Background(), 404, "Ada", "ada@acme.test", "", true)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
