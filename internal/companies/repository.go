package companies

import (
	"context"
	"encoding/json"
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

// List returns companies matching the filters plus the total count.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Company, int, error) {
	where := "deleted_at IS NULL"
	args := []any{}
	argPos := 1

	if filters.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR slug ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}
	if filters.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", argPos)
		args = append(args, *filters.IsActive)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filters.Page, filters.PerPage, total)
	query := fmt.Sprintf(`
		SELECT id, name, slug, email, is_active, created_at, updated_at
		FROM companies WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	return companies, total, rows.Err()
}

// Get fetches a company by id.
func (r *Repository) Get(ctx context.Context, id int64) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, slug, email, is_active, created_at, updated_at
		FROM companies WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

// Create inserts a company.
func (r *Repository) Create(ctx context.Context, name, slug, email string) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		INSERT INTO companies (name, slug, email, is_active, settings)
		VALUES ($1, $2, $3, TRUE, '{}')
		RETURNING id, name, slug, email, is_active, created_at, updated_at`, name, slug, email).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Company{}, fmt.Errorf("%w: slug already in use", shared.ErrDuplicate)
		}
		return Company{}, err
	}
	return c, nil
}

// Update changes the company profile.
func (r *Repository) Update(ctx context.Context, id int64, name, email string, isActive bool) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		UPDATE companies SET name = $2, email = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, name, slug, email, is_active, created_at, updated_at`, id, name, email, isActive).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Email, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

// Delete soft-deletes a company.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE companies SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetSettings returns the company's settings blob.
func (r *Repository) GetSettings(ctx context.Context, id int64) (Settings, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT settings FROM companies WHERE id = $1 AND deleted_at IS NULL`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	settings := Settings{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

// UpdateSettings replaces the company's settings blob.
func (r *Repository) UpdateSettings(ctx context.Context, id int64, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE companies SET settings = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, raw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
