package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-saas/helios/internal/platform/db"
	"github.com/helios-saas/helios/internal/shared"
)

// Repository provides PostgreSQL backed persistence for tickets and their
// message threads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketColumns = `id, company_id, customer_id, subject, status, priority, assigned_to, opened_by, created_at, updated_at`

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.CompanyID, &t.CustomerID, &t.Subject, &t.Status, &t.Priority, &t.AssignedTo, &t.OpenedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// List returns tickets matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Ticket, int, error) {
	where := "deleted_at IS NULL"
	args := []any{}
	if filters.CompanyID > 0 {
		args = append(args, filters.CompanyID)
		where += fmt.Sprintf(" AND company_id = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.AssignedTo > 0 {
		args = append(args, filters.AssignedTo)
		where += fmt.Sprintf(" AND assigned_to = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pg := shared.NewPagination(filters.Page, filters.PerPage, total)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		ticketColumns, where, len(args)+1, len(args)+2)
	args = append(args, pg.PerPage, pg.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, t)
	}
	return tickets, total, rows.Err()
}

// Get fetches a ticket by id.
func (r *Repository) Get(ctx context.Context, id int64) (Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, shared.ErrNotFound
	}
	return t, err
}

// Create inserts the ticket together with its opening message in one
// transaction.
func (r *Repository) Create(ctx context.Context, t Ticket, body string) (Ticket, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		created, err := scanTicket(tx.QueryRow(ctx, `
			INSERT INTO tickets (company_id, customer_id, subject, status, priority, opened_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+ticketColumns,
			t.CompanyID, t.CustomerID, t.Subject, t.Status, t.Priority, t.OpenedBy))
		if err != nil {
			return err
		}
		t = created
		_, err = tx.Exec(ctx, `
			INSERT INTO ticket_messages (ticket_id, author_id, body)
			VALUES ($1, $2, $3)`, t.ID, t.OpenedBy, body)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Ticket{}, fmt.Errorf("%w: company, customer or user does not exist", shared.ErrValidation)
		}
		return Ticket{}, err
	}
	return t, nil
}

// AddMessage appends a reply to the ticket thread and bumps the ticket's
// updated_at.
func (r *Repository) AddMessage(ctx context.Context, ticketID, authorID int64, body string) (Message, error) {
	var m Message
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO ticket_messages (ticket_id, author_id, body)
			VALUES ($1, $2, $3)
			RETURNING id, ticket_id, author_id, body, created_at`,
			ticketID, authorID, body).
			Scan(&m.ID, &m.TicketID, &m.AuthorID, &m.Body, &m.CreatedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE tickets SET updated_at = NOW() WHERE id = $1`, ticketID)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Message{}, fmt.Errorf("%w: ticket or author does not exist", shared.ErrValidation)
		}
		return Message{}, err
	}
	return m, nil
}

// Messages returns the ticket's thread in chronological order.
func (r *Repository) Messages(ctx context.Context, ticketID int64) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ticket_id, author_id, body, created_at
		FROM ticket_messages WHERE ticket_id = $1 ORDER BY id`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TicketID, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Assign sets or clears the ticket's assignee.
func (r *Repository) Assign(ctx context.Context, id int64, assigneeID *int64) (Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `
		UPDATE tickets SET assigned_to = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+ticketColumns,
		id, assigneeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Ticket{}, fmt.Errorf("%w: assignee does not exist", shared.ErrValidation)
		}
		return Ticket{}, err
	}
	return t, nil
}

// SetStatus transitions the ticket's status.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string) (Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, `
		UPDATE tickets SET status = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+ticketColumns,
		id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, shared.ErrNotFound
	}
	return t, err
}
