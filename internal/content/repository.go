package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-saas/helios/internal/shared"
)

// Repository provides PostgreSQL backed persistence for pages and global
// settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const pageColumns = `id, slug, title, body, published, created_at, updated_at`

func scanPage(row pgx.Row) (Page, error) {
	var p Page
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListPages returns pages ordered by slug. When publishedOnly is set, drafts
// are filtered out.
func (r *Repository) ListPages(ctx context.Context, publishedOnly bool) ([]Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE deleted_at IS NULL`
	if publishedOnly {
		query += ` AND published`
	}
	query += ` ORDER BY slug`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetPageBySlug fetches a page by its slug.
func (r *Repository) GetPageBySlug(ctx context.Context, slug string) (Page, error) {
	p, err := scanPage(r.pool.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE slug = $1 AND deleted_at IS NULL`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return Page{}, shared.ErrNotFound
	}
	return p, err
}

// CreatePage inserts a page.
func (r *Repository) CreatePage(ctx context.Context, p Page) (Page, error) {
	created, err := scanPage(r.pool.QueryRow(ctx, `
		INSERT INTO pages (slug, title, body, published)
		VALUES ($1, $2, $3, $4)
		RETURNING `+pageColumns,
		p.Slug, p.Title, p.Body, p.Published))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Page{}, fmt.Errorf("%w: page slug already exists", shared.ErrDuplicate)
		}
		return Page{}, err
	}
	return created, nil
}

// UpdatePage changes a page addressed by slug.
func (r *Repository) UpdatePage(ctx context.Context, slug string, p Page) (Page, error) {
	updated, err := scanPage(r.pool.QueryRow(ctx, `
		UPDATE pages SET title = $2, body = $3, published = $4, updated_at = NOW()
		WHERE slug = $1 AND deleted_at IS NULL
		RETURNING `+pageColumns,
		slug, p.Title, p.Body, p.Published))
	if errors.Is(err, pgx.ErrNoRows) {
		return Page{}, shared.ErrNotFound
	}
	return updated, err
}

// DeletePage soft-deletes a page.
func (r *Repository) DeletePage(ctx context.Context, slug string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pages SET deleted_at = NOW(), updated_at = NOW()
		WHERE slug = $1 AND deleted_at IS NULL`, slug)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListSettings returns all global settings ordered by key.
func (r *Repository) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GetSetting fetches one setting by key.
func (r *Repository) GetSetting(ctx context.Context, key string) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx, `SELECT key, value, updated_at FROM settings WHERE key = $1`, key).
		Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Setting{}, shared.ErrNotFound
	}
	return s, err
}

// PutSetting upserts a setting value.
func (r *Repository) PutSetting(ctx context.Context, key, value string) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING key, value, updated_at`, key, value).
		Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}

// DeleteSetting removes a setting. Missing keys are a no-op.
func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM settings WHERE key = $1`, key)
	return err
}
