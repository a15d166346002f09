package subscription

import (
	"time"

	"github.com/vendorgraph/vendorgraph/internal/types"
)

// Subscription is the local mirror of a tenant's billing subscription.
// The billing processor owns the truth, the reconciler keeps this row
// converged from webhook events.
type Subscription struct {
	ID     string `db:"id" json:"id"`
	PlanID string `db:"plan_id" json:"plan_id"`

	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	Cadence            types.PlanCadence        `db:"cadence" json:"cadence"`

	CurrentPeriodStart time.Time  `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `db:"current_period_end" json:"current_period_end"`
	TrialEnd           *time.Time `db:"trial_end" json:"trial_end,omitempty"`
	CanceledAt         *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
	CancelAtPeriodEnd  bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`

	ProcessorCustomerID     string `db:"processor_customer_id" json:"processor_customer_id"`
	ProcessorSubscriptionID string `db:"processor_subscription_id" json:"processor_subscription_id"`

	// LastEventAt is the processor timestamp of the newest event applied to
	// this row. Events older than it are dropped so out-of-order webhooks
	// never regress the status.
	LastEventAt time.Time `db:"last_event_at" json:"last_event_at"`

	types.BaseModel
}

// IsEntitled reports whether the subscription currently grants access
func (s *Subscription) IsEntitled() bool {
	return s.SubscriptionStatus.IsEntitled()
}

// IsTerminal reports whether the subscription can never grant access again.
// A canceled subscription stays canceled, reactivation creates a new one.
func (s *Subscription) IsTerminal() bool {
	return s.SubscriptionStatus == types.SubscriptionStatusCanceled
}

// ShouldApplyEvent reports whether an event with the given processor
// timestamp may mutate this subscription. Events not older than the
// watermark apply; the processor stamps seconds, so two distinct events
// can share a timestamp and applying state is idempotent.
func (s *Subscription) ShouldApplyEvent(eventAt time.Time) bool {
	if s.IsTerminal() {
		return false
	}
	return !eventAt.Before(s.LastEventAt)
}

// InPeriod reports whether the given instant falls inside the current
// billing period, start inclusive, end exclusive
func (s *Subscription) InPeriod(at time.Time) bool {
	return !at.Before(s.CurrentPeriodStart) && at.Before(s.CurrentPeriodEnd)
}
