// Package users manages back-office user accounts.
package users

import "time"

// User represents a user account for management.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilters narrows user listings.
type ListFilters struct {
	Search   string
	IsActive *bool
	Page     int
	PerPage  int
}
