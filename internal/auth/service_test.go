package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helios-saas/helios/internal/shared"
)

type mockAuthRepo struct {
	users    map[string]*User
	sessions map[string]Session
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:    make(map[string]*User),
		sessions: make(map[string]Session),
	}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, sess Session) error {
	m.sessions[sess.ID] = sess
	return nil
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockAuthRepo) ListSessions(ctx context.Context, userID int64) ([]Session, error) {
	var out []Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockAuthRepo) GetSession(ctx context.Context, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func newTestService(t *testing.T) (*Service, *mockAuthRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMockAuthRepo()
	return NewService(repo, NewTokenStore(client, time.Hour)), repo
}

func addUser(t *testing.T, repo *mockAuthRepo, email, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &User{
		ID:           int64(len(repo.users) + 1),
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
		IsActive:     active,
	}
	repo.users[email] = user
	return user
}

func TestLoginIssuesResolvableToken(t *testing.T) {
	svc, repo := newTestService(t)
	user := addUser(t, repo, "ops@example.com", "correct-horse", true)
	ctx := context.Background()

	got, token, expiresAt, err := svc.Login(ctx, "ops@example.com", "correct-horse", "10.0.0.1", "cli")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	resolved, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved)

	// The session audit row exists under the token id.
	sessions, err := svc.Sessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, token, sessions[0].ID)
	assert.Equal(t, "10.0.0.1", sessions[0].IP)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, repo := newTestService(t)
	addUser(t, repo, "ops@example.com", "correct-horse", true)
	ctx := context.Background()

	_, _, _, err := svc.Login(ctx, "ops@example.com", "wrong", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, _, err = svc.Login(ctx, "nobody@example.com", "correct-horse", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, repo := newTestService(t)
	addUser(t, repo, "ops@example.com", "correct-horse", false)

	_, _, _, err := svc.Login(context.Background(), "ops@example.com", "correct-horse", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, repo := newTestService(t)
	user := addUser(t, repo, "ops@example.com", "correct-horse", true)
	ctx := context.Background()

	_, token, _, err := svc.Login(ctx, "ops@example.com", "correct-horse", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	resolved, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Zero(t, resolved)

	sessions, err := svc.Sessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestResolveUnknownTokenIsUnauthenticated(t *testing.T) {
	svc, _ := newTestService(t)

	resolved, err := svc.Resolve(context.Background(), "not-a-token")
	require.NoError(t, err)
	assert.Zero(t, resolved)
}

func TestRevokeSession(t *testing.T) {
	svc, repo := newTestService(t)
	addUser(t, repo, "ops@example.com", "correct-horse", true)
	ctx := context.Background()

	_, token, _, err := svc.Login(ctx, "ops@example.com", "correct-horse", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(ctx, token))

	resolved, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Zero(t, resolved)

	err = svc.RevokeSession(ctx, token)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
