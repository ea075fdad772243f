// Package billing manages subscription plans, company subscriptions and
// payment records.
package billing

import (
	"fmt"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Billing interval identifiers.
const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// Subscription lifecycle states.
const (
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusExpired  = "expired"
)

// Payment states.
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// GracePeriod is how long a past_due subscription may linger before it
// expires.
const GracePeriod = 14 * 24 * time.Hour

// Plan is a purchasable subscription tier.
type Plan struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	PriceCents   int64     `json:"price_cents"`
	Currency     string    `json:"currency"`
	Interval     string    `json:"interval"`
	DisplayPrice string    `json:"display_price,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Subscription ties a company to a plan for a billing period.
type Subscription struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	PlanID      int64      `json:"plan_id"`
	Status      string     `json:"status"`
	PeriodStart time.Time  `json:"current_period_start"`
	PeriodEnd   time.Time  `json:"current_period_end"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Payment records money received against a subscription. Reference is an
// opaque UUID handed to external processors and receipts.
type Payment struct {
	ID             int64      `json:"id"`
	Reference      string     `json:"reference"`
	SubscriptionID int64      `json:"subscription_id"`
	AmountCents    int64      `json:"amount_cents"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

var displayPrinter = message.NewPrinter(language.English)

// FormatAmount renders cents as a localized amount with the currency symbol,
// e.g. "$29.00" for (2900, "USD"). Unknown codes fall back to "CODE 29.00".
func FormatAmount(cents int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", code, float64(cents)/100)
	}
	return displayPrinter.Sprint(currency.Symbol(unit.Amount(float64(cents) / 100)))
}

// PeriodEndFrom advances a period start by one billing interval.
func PeriodEndFrom(start time.Time, interval string) time.Time {
	if interval == IntervalYear {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// ValidInterval reports whether interval is a supported billing interval.
func ValidInterval(interval string) bool {
	return interval == IntervalMonth || interval == IntervalYear
}
