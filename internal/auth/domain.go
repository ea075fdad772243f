// Package auth handles credential verification and bearer-token sessions.
// It resolves the authenticated principal id; authorization is the authz
// engine's job.
package auth

import "time"

// User is the auth view of an account: just enough to verify credentials.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is the audit record of an issued bearer token.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
