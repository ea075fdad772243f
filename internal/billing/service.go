package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helios-saas/helios/internal/shared"
)

// RepositoryPort defines the persistence surface the service depends on.
type RepositoryPort interface {
	ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error)
	GetPlan(ctx context.Context, id int64) (Plan, error)
	CreatePlan(ctx context.Context, p Plan) (Plan, error)
	UpdatePlan(ctx context.Context, p Plan) (Plan, error)
	DeletePlan(ctx context.Context, id int64) error

	GetSubscription(ctx context.Context, id int64) (Subscription, error)
	ActiveSubscriptionOf(ctx context.Context, companyID int64) (Subscription, error)
	ListSubscriptions(ctx context.Context, companyID int64, page, perPage int) ([]Subscription, int, error)
	CreateSubscription(ctx context.Context, s Subscription) (Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id int64, status string, canceledAt *time.Time) (Subscription, error)
	RenewSubscription(ctx context.Context, id int64, periodStart, periodEnd time.Time) (Subscription, error)
	LapsedSubscriptions(ctx context.Context, now time.Time) ([]Subscription, error)

	CreatePayment(ctx context.Context, p Payment) (Payment, error)
	ListPayments(ctx context.Context, subscriptionID int64) ([]Payment, error)
}

// Service orchestrates plan management and the subscription lifecycle.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// ListPlans returns plans with display prices attached.
func (s *Service) ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error) {
	plans, err := s.repo.ListPlans(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		plans[i].DisplayPrice = FormatAmount(plans[i].PriceCents, plans[i].Currency)
	}
	return plans, nil
}

// GetPlan fetches a plan by id.
func (s *Service) GetPlan(ctx context.Context, id int64) (Plan, error) {
	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	plan.DisplayPrice = FormatAmount(plan.PriceCents, plan.Currency)
	return plan, nil
}

// CreatePlan registers a new plan.
func (s *Service) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	if err := normalizePlan(&p); err != nil {
		return Plan{}, err
	}
	created, err := s.repo.CreatePlan(ctx, p)
	if err != nil {
		return Plan{}, err
	}
	created.DisplayPrice = FormatAmount(created.PriceCents, created.Currency)
	return created, nil
}

// UpdatePlan changes a plan. Price changes apply to future renewals only.
func (s *Service) UpdatePlan(ctx context.Context, p Plan) (Plan, error) {
	if err := normalizePlan(&p); err != nil {
		return Plan{}, err
	}
	updated, err := s.repo.UpdatePlan(ctx, p)
	if err != nil {
		return Plan{}, err
	}
	updated.DisplayPrice = FormatAmount(updated.PriceCents, updated.Currency)
	return updated, nil
}

// DeletePlan retires a plan.
func (s *Service) DeletePlan(ctx context.Context, id int64) error {
	return s.repo.DeletePlan(ctx, id)
}

func normalizePlan(p *Plan) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Name == "" {
		return fmt.Errorf("%w: plan name required", shared.ErrValidation)
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("%w: plan price must not be negative", shared.ErrValidation)
	}
	if len(p.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter ISO code", shared.ErrValidation)
	}
	if !ValidInterval(p.Interval) {
		return fmt.Errorf("%w: billing interval must be %q or %q", shared.ErrValidation, IntervalMonth, IntervalYear)
	}
	return nil
}

// Subscribe opens a subscription for a company on the given plan. A company
// carries at most one active subscription at a time.
func (s *Service) Subscribe(ctx context.Context, companyID, planID int64) (Subscription, error) {
	if companyID <= 0 || planID <= 0 {
		return Subscription{}, fmt.Errorf("%w: company and plan required", shared.ErrValidation)
	}
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Subscription{}, fmt.Errorf("%w: plan does not exist", shared.ErrValidation)
		}
		return Subscription{}, err
	}
	if !plan.IsActive {
		return Subscription{}, fmt.Errorf("%w: plan is no longer offered", shared.ErrValidation)
	}

	if _, err := s.repo.ActiveSubscriptionOf(ctx, companyID); err == nil {
		return Subscription{}, fmt.Errorf("%w: company already has an active subscription", shared.ErrDuplicate)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Subscription{}, err
	}

	start := s.now().UTC()
	sub, err := s.repo.CreateSubscription(ctx, Subscription{
		CompanyID:   companyID,
		PlanID:      planID,
		Status:      StatusActive,
		PeriodStart: start,
		PeriodEnd:   PeriodEndFrom(start, plan.Interval),
	})
	if err != nil {
		return Subscription{}, err
	}
	s.logger.Info("subscription opened",
		slog.Int64("subscription_id", sub.ID),
		slog.Int64("company_id", companyID),
		slog.Int64("plan_id", planID))
	return sub, nil
}

// GetSubscription fetches a subscription by id.
func (s *Service) GetSubscription(ctx context.Context, id int64) (Subscription, error) {
	return s.repo.GetSubscription(ctx, id)
}

// ListSubscriptions lists subscriptions, optionally company-scoped.
func (s *Service) ListSubscriptions(ctx context.Context, companyID int64, page, perPage int) ([]Subscription, shared.Pagination, error) {
	subs, total, err := s.repo.ListSubscriptions(ctx, companyID, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return subs, shared.NewPagination(page, perPage, total), nil
}

// Cancel stops a subscription at the end of its current period. Canceling an
// already-canceled subscription is a no-op.
func (s *Service) Cancel(ctx context.Context, id int64) (Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return Subscription{}, err
	}
	switch sub.Status {
	case StatusCanceled, StatusExpired:
		return sub, nil
	}
	now := s.now().UTC()
	canceled, err := s.repo.UpdateSubscriptionStatus(ctx, id, StatusCanceled, &now)
	if err != nil {
		return Subscription{}, err
	}
	s.logger.Info("subscription canceled", slog.Int64("subscription_id", id))
	return canceled, nil
}

// Renew extends the subscription by one plan interval and records the
// renewal payment. Expired and canceled subscriptions cannot renew.
func (s *Service) Renew(ctx context.Context, id int64) (Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return Subscription{}, err
	}
	if sub.Status == StatusCanceled || sub.Status == StatusExpired {
		return Subscription{}, fmt.Errorf("%w: subscription is %s and cannot renew", shared.ErrValidation, sub.Status)
	}
	plan, err := s.repo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return Subscription{}, err
	}

	start := sub.PeriodEnd
	if now := s.now().UTC(); start.Before(now) {
		start = now
	}
	renewed, err := s.repo.RenewSubscription(ctx, id, start, PeriodEndFrom(start, plan.Interval))
	if err != nil {
		return Subscription{}, err
	}

	paidAt := s.now().UTC()
	if _, err := s.repo.CreatePayment(ctx, Payment{
		Reference:      uuid.NewString(),
		SubscriptionID: id,
		AmountCents:    plan.PriceCents,
		Currency:       plan.Currency,
		Status:         PaymentSucceeded,
		PaidAt:         &paidAt,
	}); err != nil {
		s.logger.Error("record renewal payment", slog.Int64("subscription_id", id), slog.Any("error", err))
		return Subscription{}, err
	}
	s.logger.Info("subscription renewed",
		slog.Int64("subscription_id", id),
		slog.Time("period_end", renewed.PeriodEnd))
	return renewed, nil
}

// RecordPayment registers a manually reconciled payment against a
// subscription and returns it with its generated reference.
func (s *Service) RecordPayment(ctx context.Context, subscriptionID, amountCents int64, currencyCode, status string) (Payment, error) {
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if amountCents < 0 {
		return Payment{}, fmt.Errorf("%w: amount must not be negative", shared.ErrValidation)
	}
	if len(currencyCode) != 3 {
		return Payment{}, fmt.Errorf("%w: currency must be a 3-letter ISO code", shared.ErrValidation)
	}
	switch status {
	case PaymentPending, PaymentSucceeded, PaymentFailed:
	default:
		return Payment{}, fmt.Errorf("%w: unknown payment status %q", shared.ErrValidation, status)
	}
	p := Payment{
		Reference:      uuid.NewString(),
		SubscriptionID: subscriptionID,
		AmountCents:    amountCents,
		Currency:       currencyCode,
		Status:         status,
	}
	if status == PaymentSucceeded {
		paidAt := s.now().UTC()
		p.PaidAt = &paidAt
	}
	return s.repo.CreatePayment(ctx, p)
}

// ListPayments returns a subscription's payment history.
func (s *Service) ListPayments(ctx context.Context, subscriptionID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, subscriptionID)
}

// RunRenewalScan sweeps lapsed subscriptions: active ones past their period
// end become past_due, past_due ones beyond the grace window expire. It
// returns how many rows transitioned and is safe to run repeatedly.
func (s *Service) RunRenewalScan(ctx context.Context) (int, error) {
	now := s.now().UTC()
	lapsed, err := s.repo.LapsedSubscriptions(ctx, now)
	if err != nil {
		return 0, err
	}
	transitioned := 0
	for _, sub := range lapsed {
		next := StatusPastDue
		if sub.Status == StatusPastDue {
			next = StatusExpired
		}
		if _, err := s.repo.UpdateSubscriptionStatus(ctx, sub.ID, next, sub.CanceledAt); err != nil {
			s.logger.Error("renewal scan transition",
				slog.Int64("subscription_id", sub.ID),
				slog.String("to", next),
				slog.Any("error", err))
			continue
		}
		transitioned++
		s.logger.Info("subscription lapsed",
			slog.Int64("subscription_id", sub.ID),
			slog.String("status", next))
	}
	return transitioned, nil
}
