package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-saas/helios/internal/shared"
)

type mockRepo struct {
	plans    map[int64]Plan
	subs     map[int64]Subscription
	payments []Payment
	nextID   int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{plans: map[int64]Plan{}, subs: map[int64]Subscription{}, nextID: 1}
}

func (m *mockRepo) addPlan(p Plan) Plan {
	p.ID = m.nextID
	m.nextID++
	m.plans[p.ID] = p
	return p
}

func (m *mockRepo) ListPlans(_ context.Context, activeOnly bool) ([]Plan, error) {
	var out []Plan
	for _, p := range m.plans {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepo) GetPlan(_ context.Context, id int64) (Plan, error) {
	p, ok := m.plans[id]
	if !ok {
		return Plan{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) CreatePlan(_ context.Context, p Plan) (Plan, error) {
	p.IsActive = true
	return m.addPlan(p), nil
}

func (m *mockRepo) UpdatePlan(_ context.Context, p Plan) (Plan, error) {
	if _, ok := m.plans[p.ID]; !ok {
		return Plan{}, shared.ErrNotFound
	}
	m.plans[p.ID] = p
	return p, nil
}

func (m *mockRepo) DeletePlan(_ context.Context, id int64) error {
	if _, ok := m.plans[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.plans, id)
	return nil
}

func (m *mockRepo) GetSubscription(_ context.Context, id int64) (Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return Subscription{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *mockRepo) ActiveSubscriptionOf(_ context.Context, companyID int64) (Subscription, error) {
	for _, s := range m.subs {
		if s.CompanyID == companyID && (s.Status == StatusActive || s.Status == StatusPastDue) {
			return s, nil
		}
	}
	return Subscription{}, shared.ErrNotFound
}

func (m *mockRepo) ListSubscriptions(_ context.Context, companyID int64, _, _ int) ([]Subscription, int, error) {
	var out []Subscription
	for _, s := range m.subs {
		if companyID > 0 && s.CompanyID != companyID {
			continue
		}
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *mockRepo) CreateSubscription(_ context.Context, s Subscription) (Subscription, error) {
	s.ID = m.nextID
	m.nextID++
	m.subs[s.ID] = s
	return s, nil
}

func (m *mockRepo) UpdateSubscriptionStatus(_ context.Context, id int64, status string, canceledAt *time.Time) (Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return Subscription{}, shared.ErrNotFound
	}
	s.Status = status
	s.CanceledAt = canceledAt
	m.subs[id] = s
	return s, nil
}

func (m *mockRepo) RenewSubscription(_ context.Context, id int64, periodStart, periodEnd time.Time) (Subscription, error) {
	s, ok := m.subs[id]
	if !ok {
		return Subscription{}, shared.ErrNotFound
	}
	s.Status = StatusActive
	s.PeriodStart = periodStart
	s.PeriodEnd = periodEnd
	m.subs[id] = s
	return s, nil
}

func (m *mockRepo) LapsedSubscriptions(_ context.Context, now time.Time) ([]Subscription, error) {
	var out []Subscription
	for _, s := range m.subs {
		if s.Status == StatusActive && s.PeriodEnd.Before(now) {
			out = append(out, s)
		}
		if s.Status == StatusPastDue && s.PeriodEnd.Before(now.Add(-GracePeriod)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRepo) CreatePayment(_ context.Context, p Payment) (Payment, error) {
	p.ID = m.nextID
	m.nextID++
	m.payments = append(m.payments, p)
	return p, nil
}

func (m *mockRepo) ListPayments(_ context.Context, subscriptionID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.SubscriptionID == subscriptionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestService(repo *mockRepo, now time.Time) *Service {
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestSubscribeOpensActiveSubscription(t *testing.T) {
	repo := newMockRepo()
	plan := repo.addPlan(Plan{Name: "Starter", PriceCents: 2900, Currency: "USD", Interval: IntervalMonth, IsActive: true})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	sub, err := svc.Subscribe(context.Background(), 7, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sub.Status)
	assert.Equal(t, now, sub.PeriodStart)
	assert.Equal(t, now.AddDate(0, 1, 0), sub.PeriodEnd)
}

func TestSubscribeRejectsSecondActiveSubscription(t *testing.T) {
	repo := newMockRepo()
	plan := repo.addPlan(Plan{Name: "Starter", PriceCents: 2900, Currency: "USD", Interval: IntervalMonth, IsActive: true})
	svc := newTestService(repo, time.Now())

	_, err := svc.Subscribe(context.Background(), 7, plan.ID)
	require.NoError(t, err)

	_, err = svc.Subscribe(context.Background(), 7, plan.ID)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestSubscribeRejectsRetiredPlan(t *testing.T) {
	repo := newMockRepo()
	plan := repo.addPlan(Plan{Name: "Legacy", PriceCents: 900, Currency: "USD", Interval: IntervalMonth, IsActive: false})
	svc := newTestService(repo, time.Now())

	_, err := svc.Subscribe(context.Background(), 7, plan.ID)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCancelIsIdempotent(t *testing.T) {
	repo := newMockRepo()
	plan := repo.addPlan(Plan{Name: "Starter", PriceCents: 2900, Currency: "USD", Interval: IntervalMonth, IsActive: true})
	svc := newTestService(repo, time.Now())

	sub, err := svc.Subscribe(context.Background(), 7, plan.ID)
	require.NoError(t, err)

	canceled, err := svc.Cancel(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CanceledAt)

	again, err := svc.Cancel(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, again.Status)
}

func TestRenewExtendsPeriodAndRecordsPayment(t *testing.T) {
	repo := newMockRepo()
	plan := repo.addPlan(Plan{Name: "Pro", PriceCents: 9900, Currency: "EUR", Interval: IntervalYear, IsActive: true})
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	sub, err := svc.Subscribe(context.Background(), 3, plan.ID)
	require.NoError(t, err)

	renewed, err := svc.Renew(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, renewed.Status)
	assert.Equal(t, sub.PeriodEnd.AddDate(1, 0, 0), renewed.PeriodEnd)

	payments, err := svc.ListPayments(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(9900), payments[0].AmountCents)
	assert.Equal(t, PaymentSucceeded, payments[0].Status)
	assert.NotEmpty(t, payments[0].Reference)
	require.NotNil(t, payments[0].PaidAt)
}

func TestRenewStartsFromNowWhenPeriodLongOver(t *testing.T) {
	repo := newMockRepo()
	plan := repo.addPlan(Plan{Name: "Pro", PriceCents: 9900, Currency: "EUR", Interval: IntervalMonth, IsActive: true})
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, start)

	sub, err := svc.Subscribe(context.Background(), 3, plan.ID)
	require.NoError(t, err)

	later := start.AddDate(0, 6, 0)
	svc.now = func() time.Time { return later }

	renewed, err := svc.Renew(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, later, renewed.PeriodStart)
	assert.Equal(t, later.AddDate(0, 1, 0), renewed.PeriodEnd)
}

func TestRenewRejectsCanceled(t *testing.T) {
	repo := newMockRepo()
	plan := repo.addPlan(Plan{Name: "Pro", PriceCents: 9900, Currency: "EUR", Interval: IntervalMonth, IsActive: true})
	svc := newTestService(repo, time.Now())

	sub, err := svc.Subscribe(context.Background(), 3, plan.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), sub.ID)
	require.NoError(t, err)

	_, err = svc.Renew(context.Background(), sub.ID)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordPaymentValidation(t *testing.T) {
	svc := newTestService(newMockRepo(), time.Now())

	_, err := svc.RecordPayment(context.Background(), 1, -1, "USD", PaymentSucceeded)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordPayment(context.Background(), 1, 100, "DOLLARS", PaymentSucceeded)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordPayment(context.Background(), 1, 100, "USD", "refunded")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordPaymentSucceededStampsPaidAt(t *testing.T) {
	repo := newMockRepo()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	p, err := svc.RecordPayment(context.Background(), 1, 500, "usd", PaymentSucceeded)
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency)
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, now, *p.PaidAt)

	pending, err := svc.RecordPayment(context.Background(), 1, 500, "USD", PaymentPending)
	require.NoError(t, err)
	assert.Nil(t, pending.PaidAt)
}

func TestRunRenewalScanTransitions(t *testing.T) {
	repo := newMockRepo()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	active, err := repo.CreateSubscription(context.Background(), Subscription{
		CompanyID: 1, PlanID: 1, Status: StatusActive,
		PeriodEnd: now.AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	pastDue, err := repo.CreateSubscription(context.Background(), Subscription{
		CompanyID: 2, PlanID: 1, Status: StatusPastDue,
		PeriodEnd: now.Add(-GracePeriod).AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	healthy, err := repo.CreateSubscription(context.Background(), Subscription{
		CompanyID: 3, PlanID: 1, Status: StatusActive,
		PeriodEnd: now.AddDate(0, 0, 10),
	})
	require.NoError(t, err)

	n, err := svc.RunRenewalScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, StatusPastDue, repo.subs[active.ID].Status)
	assert.Equal(t, StatusExpired, repo.subs[pastDue.ID].Status)
	assert.Equal(t, StatusActive, repo.subs[healthy.ID].Status)
}

func TestRunRenewalScanIsRepeatable(t *testing.T) {
	repo := newMockRepo()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	_, err := repo.CreateSubscription(context.Background(), Subscription{
		CompanyID: 1, PlanID: 1, Status: StatusActive,
		PeriodEnd: now.AddDate(0, 0, -1),
	})
	require.NoError(t, err)

	n, err := svc.RunRenewalScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.RunRenewalScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPlanValidation(t *testing.T) {
	svc := newTestService(newMockRepo(), time.Now())

	_, err := svc.CreatePlan(context.Background(), Plan{Name: "", Currency: "USD", Interval: IntervalMonth})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreatePlan(context.Background(), Plan{Name: "X", Currency: "USD", Interval: "weekly"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	plan, err := svc.CreatePlan(context.Background(), Plan{Name: "X", PriceCents: 2900, Currency: "usd", Interval: IntervalMonth})
	require.NoError(t, err)
	assert.Equal(t, "USD", plan.Currency)
	assert.NotEmpty(t, plan.DisplayPrice)
}

func TestGetPlanNotFound(t *testing.T) {
	svc := newTestService(newMockRepo(), time.Now())
	_, err := svc.GetPlan(context.Background(), 99)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestFormatAmount(t *testing.T) {
	assert.Contains(t, FormatAmount(2900, "USD"), "29.00")
	// Unknown codes fall back to "CODE amount".
	assert.Equal(t, "NOPE 29.00", FormatAmount(2900, "NOPE"))
}
