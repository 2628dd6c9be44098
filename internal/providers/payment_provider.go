package providers

import (
	"context"
	"time"

	"alignbill/internal/models/db_models"
)

type ChargeStatus string

const (
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargePending   ChargeStatus = "pending"
	ChargeFailed    ChargeStatus = "failed"
)

// Schedule statuses as reported by the provider. Anything outside this
// set is passed through verbatim and the reconciler decides what to do.
const (
	ScheduleActive     = "active"
	ScheduleCanceled   = "canceled"
	SchedulePastDue    = "past_due"
	ScheduleIncomplete = "incomplete"
	ScheduleCompleted  = "completed"
)

type ChargeResult struct {
	ProviderTxnID string
	Status        ChargeStatus
	// CheckoutURL is set by link-based providers where the charge
	// settles out-of-band; empty for direct-charge providers.
	CheckoutURL string
}

type ScheduleResult struct {
	ProviderScheduleID string
	ProviderSubID      string
	FirstBillingDate   time.Time
}

type ScheduleView struct {
	Status         string
	CompletedCount int
	// CurrentPeriodEnd is the zero time when the provider does not
	// expose billing period boundaries.
	CurrentPeriodEnd time.Time
}

// PaymentProvider is the collaborator contract the order engine and the
// reconciler depend on. It is injected, never reached through package
// globals, so tests can substitute a fake.
type PaymentProvider interface {
	// ChargeInitial attempts the up-front charge for an order.
	ChargeInitial(ctx context.Context, customerRef, paymentMethodRef string, amountMinor int64, metadata map[string]string) (*ChargeResult, error)

	// CreateRecurringSchedule sets up exactly count charge iterations,
	// never an open-ended recurrence.
	CreateRecurringSchedule(ctx context.Context, customerRef, paymentMethodRef string, installmentMinor int64, count int, frequency db_models.PlanFrequency, metadata map[string]string) (*ScheduleResult, error)

	CancelSchedule(ctx context.Context, providerScheduleID string) (bool, error)

	GetScheduleStatus(ctx context.Context, providerScheduleID string) (*ScheduleView, error)
}

// PeriodAfter advances t by one billing period of the given frequency.
func PeriodAfter(t time.Time, frequency db_models.PlanFrequency) time.Time {
	if frequency == db_models.FrequencyWeekly {
		return t.AddDate(0, 0, 7)
	}
	return t.AddDate(0, 1, 0)
}
