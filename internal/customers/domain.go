// Package customers manages a tenant company's customers.
package customers

import "time"

// Customer represents an end customer belonging to a company.
type Customer struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilters narrows customer listings.
type ListFilters struct {
	CompanyID int64
	Search    string
	IsActive  *bool
	Page      int
	PerPage   int
}
