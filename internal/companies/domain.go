// Package companies manages tenant companies and their settings.
package companies

import "time"

// Company represents a tenant of the platform.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings is the per-company configuration blob.
type Settings map[string]any

// ListFilters narrows company listings.
type ListFilters struct {
	Search   string
	IsActive *bool
	Page     int
	PerPage  int
}
