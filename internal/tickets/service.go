package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/helios-saas/helios/internal/shared"
)

// RepositoryPort defines the persistence surface the service depends on.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]Ticket, int, error)
	Get(ctx context.Context, id int64) (Ticket, error)
	Create(ctx context.Context, t Ticket, body string) (Ticket, error)
	AddMessage(ctx context.Context, ticketID, authorID int64, body string) (Message, error)
	Messages(ctx context.Context, ticketID int64) ([]Message, error)
	Assign(ctx context.Context, id int64, assigneeID *int64) (Ticket, error)
	SetStatus(ctx context.Context, id int64, status string) (Ticket, error)
}

// Notifier fans out ticket activity, typically by enqueuing a background
// email job. May be nil when notifications are disabled.
type Notifier interface {
	TicketReplied(ctx context.Context, t Ticket, m Message) error
}

// Service orchestrates the ticket lifecycle.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

// List returns tickets matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Ticket, shared.Pagination, error) {
	if filters.Status != "" && !ValidStatus(filters.Status) {
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown ticket status %q", shared.ErrValidation, filters.Status)
	}
	tickets, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return tickets, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get fetches the ticket together with its thread.
func (s *Service) Get(ctx context.Context, id int64) (Ticket, []Message, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Ticket{}, nil, err
	}
	messages, err := s.repo.Messages(ctx, id)
	if err != nil {
		return Ticket{}, nil, err
	}
	return t, messages, nil
}

// Open creates a ticket with its opening message.
func (s *Service) Open(ctx context.Context, companyID, openedBy int64, customerID *int64, subject, body, priority string) (Ticket, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if companyID <= 0 {
		return Ticket{}, fmt.Errorf("%w: company required", shared.ErrValidation)
	}
	if openedBy <= 0 {
		return Ticket{}, fmt.Errorf("%w: opener required", shared.ErrValidation)
	}
	if subject == "" || body == "" {
		return Ticket{}, fmt.Errorf("%w: subject and body required", shared.ErrValidation)
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !ValidPriority(priority) {
		return Ticket{}, fmt.Errorf("%w: unknown priority %q", shared.ErrValidation, priority)
	}
	t, err := s.repo.Create(ctx, Ticket{
		CompanyID:  companyID,
		CustomerID: customerID,
		Subject:    subject,
		Status:     StatusOpen,
		Priority:   priority,
		OpenedBy:   openedBy,
	}, body)
	if err != nil {
		return Ticket{}, err
	}
	s.logger.Info("ticket opened",
		slog.Int64("ticket_id", t.ID),
		slog.Int64("company_id", companyID),
		slog.String("priority", priority))
	return t, nil
}

// Reply appends a message to an open or pending ticket and notifies
// watchers. Closed tickets do not accept replies.
func (s *Service) Reply(ctx context.Context, ticketID, authorID int64, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, fmt.Errorf("%w: message body required", shared.ErrValidation)
	}
	t, err := s.repo.Get(ctx, ticketID)
	if err != nil {
		return Message{}, err
	}
	if t.Status == StatusClosed {
		return Message{}, fmt.Errorf("%w: ticket is closed", shared.ErrValidation)
	}
	m, err := s.repo.AddMessage(ctx, ticketID, authorID, body)
	if err != nil {
		return Message{}, err
	}
	if s.notifier != nil {
		if err := s.notifier.TicketReplied(ctx, t, m); err != nil {
			s.logger.Warn("ticket reply notification",
				slog.Int64("ticket_id", ticketID),
				slog.Any("error", err))
		}
	}
	return m, nil
}

// Assign hands the ticket to a user; a nil assignee unassigns it.
func (s *Service) Assign(ctx context.Context, ticketID int64, assigneeID *int64) (Ticket, error) {
	if assigneeID != nil && *assigneeID <= 0 {
		return Ticket{}, fmt.Errorf("%w: invalid assignee", shared.ErrValidation)
	}
	t, err := s.repo.Assign(ctx, ticketID, assigneeID)
	if err != nil {
		return Ticket{}, err
	}
	if t.Status == StatusOpen && assigneeID != nil {
		if pending, err := s.repo.SetStatus(ctx, ticketID, StatusPending); err == nil {
			t = pending
		}
	}
	return t, nil
}

// Close resolves the ticket. Closing a closed ticket is a no-op.
func (s *Service) Close(ctx context.Context, ticketID int64) (Ticket, error) {
	t, err := s.repo.Get(ctx, ticketID)
	if err != nil {
		return Ticket{}, err
	}
	if t.Status == StatusClosed {
		return t, nil
	}
	closed, err := s.repo.SetStatus(ctx, ticketID, StatusClosed)
	if err != nil {
		return Ticket{}, err
	}
	s.logger.Info("ticket closed", slog.Int64("ticket_id", ticketID))
	return closed, nil
}
