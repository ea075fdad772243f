package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-saas/helios/internal/shared"
)

// Repository provides PostgreSQL backed persistence for plans,
// subscriptions and payments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const planColumns = `id, name, COALESCE(description, ''), price_cents, currency, billing_interval, is_active, created_at, updated_at`

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.Interval, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListPlans returns plans ordered by price. When activeOnly is set,
// deactivated plans are filtered out.
func (r *Repository) ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE deleted_at IS NULL`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY price_cents, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// GetPlan fetches a plan by id.
func (r *Repository) GetPlan(ctx context.Context, id int64) (Plan, error) {
	p, err := scanPlan(r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, shared.ErrNotFound
	}
	return p, err
}

// CreatePlan inserts a plan.
func (r *Repository) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	created, err := scanPlan(r.pool.QueryRow(ctx, `
		INSERT INTO plans (name, description, price_cents, currency, billing_interval, is_active)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, TRUE)
		RETURNING `+planColumns,
		p.Name, p.Description, p.PriceCents, p.Currency, p.Interval))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Plan{}, fmt.Errorf("%w: plan name already exists", shared.ErrDuplicate)
		}
		return Plan{}, err
	}
	return created, nil
}

// UpdatePlan changes plan attributes.
func (r *Repository) UpdatePlan(ctx context.Context, p Plan) (Plan, error) {
	updated, err := scanPlan(r.pool.QueryRow(ctx, `
		UPDATE plans SET name = $2, description = NULLIF($3, ''), price_cents = $4,
			currency = $5, billing_interval = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+planColumns,
		p.ID, p.Name, p.Description, p.PriceCents, p.Currency, p.Interval, p.IsActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, shared.ErrNotFound
	}
	return updated, err
}

// DeletePlan soft-deletes a plan. Existing subscriptions keep their
// reference and continue until they lapse.
func (r *Repository) DeletePlan(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE plans SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const subColumns = `id, company_id, plan_id, status, current_period_start, current_period_end, canceled_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.CompanyID, &s.PlanID, &s.Status, &s.PeriodStart, &s.PeriodEnd, &s.CanceledAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// GetSubscription fetches a subscription by id.
func (r *Repository) GetSubscription(ctx context.Context, id int64) (Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx,
		`SELECT `+subColumns+` FROM subscriptions WHERE id = $1 AND deleted_at IS NULL`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, shared.ErrNotFound
	}
	return s, err
}

// ActiveSubscriptionOf returns the company's current active or past_due
// subscription, or shared.ErrNotFound when none exists.
func (r *Repository) ActiveSubscriptionOf(ctx context.Context, companyID int64) (Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx, `
		SELECT `+subColumns+` FROM subscriptions
		WHERE company_id = $1 AND status IN ($2, $3) AND deleted_at IS NULL
		ORDER BY id DESC LIMIT 1`,
		companyID, StatusActive, StatusPastDue))
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, shared.ErrNotFound
	}
	return s, err
}

// ListSubscriptions returns subscriptions, optionally scoped to a company,
// newest first.
func (r *Repository) ListSubscriptions(ctx context.Context, companyID int64, page, perPage int) ([]Subscription, int, error) {
	where := "deleted_at IS NULL"
	args := []any{}
	if companyID > 0 {
		where += " AND company_id = $1"
		args = append(args, companyID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pg := shared.NewPagination(page, perPage, total)
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		subColumns, where, len(args)+1, len(args)+2)
	args = append(args, pg.PerPage, pg.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, err
		}
		subs = append(subs, s)
	}
	return subs, total, rows.Err()
}

// CreateSubscription inserts a subscription row.
func (r *Repository) CreateSubscription(ctx context.Context, s Subscription) (Subscription, error) {
	created, err := scanSubscription(r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (company_id, plan_id, status, current_period_start, current_period_end)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+subColumns,
		s.CompanyID, s.PlanID, s.Status, s.PeriodStart, s.PeriodEnd))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Subscription{}, fmt.Errorf("%w: company or plan does not exist", shared.ErrValidation)
		}
		return Subscription{}, err
	}
	return created, nil
}

// UpdateSubscriptionStatus transitions a subscription's status and, for
// cancellations, stamps canceled_at.
func (r *Repository) UpdateSubscriptionStatus(ctx context.Context, id int64, status string, canceledAt *time.Time) (Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx, `
		UPDATE subscriptions SET status = $2, canceled_at = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+subColumns,
		id, status, canceledAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, shared.ErrNotFound
	}
	return s, err
}

// RenewSubscription extends the billing period from its current end and
// reactivates the subscription.
func (r *Repository) RenewSubscription(ctx context.Context, id int64, periodStart, periodEnd time.Time) (Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx, `
		UPDATE subscriptions SET status = $2, current_period_start = $3, current_period_end = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+subColumns,
		id, StatusActive, periodStart, periodEnd))
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, shared.ErrNotFound
	}
	return s, err
}

// LapsedSubscriptions returns active subscriptions whose period ended before
// the cutoff, plus past_due ones beyond the grace window.
func (r *Repository) LapsedSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+subColumns+` FROM subscriptions
		WHERE deleted_at IS NULL AND (
			(status = $1 AND current_period_end < $3) OR
			(status = $2 AND current_period_end < $4)
		)
		ORDER BY id`,
		StatusActive, StatusPastDue, now, now.Add(-GracePeriod))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

const paymentColumns = `id, reference, subscription_id, amount_cents, currency, status, paid_at, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.Reference, &p.SubscriptionID, &p.AmountCents, &p.Currency, &p.Status, &p.PaidAt, &p.CreatedAt)
	return p, err
}

// CreatePayment inserts a payment record.
func (r *Repository) CreatePayment(ctx context.Context, p Payment) (Payment, error) {
	created, err := scanPayment(r.pool.QueryRow(ctx, `
		INSERT INTO payments (reference, subscription_id, amount_cents, currency, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		p.Reference, p.SubscriptionID, p.AmountCents, p.Currency, p.Status, p.PaidAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return Payment{}, fmt.Errorf("%w: subscription does not exist", shared.ErrValidation)
			case "23505":
				return Payment{}, fmt.Errorf("%w: payment reference already recorded", shared.ErrDuplicate)
			}
		}
		return Payment{}, err
	}
	return created, nil
}

// ListPayments returns the payments of a subscription, newest first.
func (r *Repository) ListPayments(ctx context.Context, subscriptionID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE subscription_id = $1 ORDER BY id DESC`, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
