package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-saas/helios/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the company's customers matching the filters plus the total.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	where := "company_id = $1 AND deleted_at IS NULL"
	args := []any{filters.CompanyID}
	argPos := 2

	if filters.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}
	if filters.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argPos)
		args = append(args, *filters.IsActive)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filters.Page, filters.PerPage, total)
	query := fmt.Sprintf(`
		SELECT id, company_id, name, email, COALESCE(phone, ''), is_active, created_at, updated_at
		FROM customers WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

// Get fetches a customer by id.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, name, email, COALESCE(phone, ''), is_active, created_at, updated_at
		FROM customers WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// Create inserts a customer under a company.
func (r *Repository) Create(ctx context.Context, c Customer) (Customer, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (company_id, name, email, phone, is_active)
		VALUES ($1, $2, $3, NULLIF($4, ''), TRUE)
		RETURNING id, company_id, name, email, COALESCE(phone, ''), is_active, created_at, updated_at`,
		c.CompanyID, c.Name, c.Email, c.Phone).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return Customer{}, fmt.Errorf("%w: company does not exist", shared.ErrValidation)
			case "23505":
				return Customer{}, fmt.Errorf("%w: customer email already exists for company", shared.ErrDuplicate)
			}
		}
		return Customer{}, err
	}
	return c, nil
}

// Update changes the customer profile.
func (r *Repository) Update(ctx context.Context, id int64, name, email, phone string, isActive bool) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `
		UPDATE customers SET name = $2, email = $3, phone = NULLIF($4, ''), is_active = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, company_id, name, email, COALESCE(phone, ''), is_active, created_at, updated_at`,
		id, name, email, phone, isActive).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

// Delete soft-deletes a customer.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
