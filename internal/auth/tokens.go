package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenStore maps bearer tokens to principal ids in Redis. Tokens expire on
// their own; revocation deletes the key.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a fresh token bound to the user id.
func (s *TokenStore) Issue(ctx context.Context, userID int64) (token string, expiresAt time.Time, err error) {
	token = uuid.NewString()
	expiresAt = time.Now().UTC().Add(s.ttl)
	if err := s.client.Set(ctx, s.key(token), userID, s.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("auth: store token: %w", err)
	}
	return token, expiresAt, nil
}

// Resolve returns the user id bound to the token. A missing or expired token
// resolves to (0, nil): unauthenticated, not an error.
func (s *TokenStore) Resolve(ctx context.Context, token string) (int64, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("auth: resolve token: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("auth: corrupt token binding: %w", err)
	}
	return id, nil
}

// Revoke invalidates a token. Revoking an unknown token is a no-op.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

func (s *TokenStore) key(token string) string {
	return "helios:token:" + token
}
