// Package tickets implements the support ticket desk: tickets opened by or
// for customers, threaded replies, assignment and closure.
package tickets

import "time"

// Ticket lifecycle states.
const (
	StatusOpen    = "open"
	StatusPending = "pending"
	StatusClosed  = "closed"
)

// Ticket priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Ticket is a support conversation belonging to a company.
type Ticket struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"company_id"`
	CustomerID *int64    `json:"customer_id,omitempty"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
	AssignedTo *int64    `json:"assigned_to,omitempty"`
	OpenedBy   int64     `json:"opened_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Message is a single entry in a ticket's thread.
type Message struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilters narrows ticket listings.
type ListFilters struct {
	CompanyID  int64
	Status     string
	AssignedTo int64
	Page       int
	PerPage    int
}

// ValidStatus reports whether status is a known ticket state.
func ValidStatus(status string) bool {
	switch status {
	case StatusOpen, StatusPending, StatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether priority is a known ticket priority.
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}
