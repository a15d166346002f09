package service

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/suite"
	"github.com/vendorgraph/vendorgraph/internal/testutil"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type ReconcilerServiceSuite struct {
	testutil.BaseServiceTestSuite
	params       ServiceParams
	entitlements EntitlementService
	service      ReconcilerService
}

func TestReconcilerService(t *testing.T) {
	suite.Run(t, new(ReconcilerServiceSuite))
}

func (s *ReconcilerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.entitlements = NewEntitlementService(s.params)
	s.service = NewReconcilerService(s.params, s.entitlements)
}

func processorEvent(eventType string, createdAt time.Time, raw string) *stripeapi.Event {
	return &stripeapi.Event{
		ID:      "evt_" + types.GenerateUUID(),
		Type:    stripeapi.EventType(eventType),
		Created: createdAt.Unix(),
		Data:    &stripeapi.EventData{Raw: json.RawMessage(raw)},
	}
}

func subscriptionJSON(processorSubID, status, tenantID string, periodStart, periodEnd time.Time) string {
	return fmt.Sprintf(`{
		"id": %q,
		"status": %q,
		"customer": {"id": "cus_42"},
		"metadata": {"tenant_id": %q, "plan_id": "starter"},
		"items": {
			"data": [{
				"current_period_start": %d,
				"current_period_end": %d,
				"price": {
					"id": "price_starter_monthly",
					"recurring": {"interval": "month"}
				}
			}]
		}
	}`, processorSubID, status, tenantID, periodStart.Unix(), periodEnd.Unix())
}

func invoiceJSON(processorSubID string) string {
	return fmt.Sprintf(`{
		"id": "in_1",
		"parent": {
			"subscription_details": {
				"subscription": {"id": %q}
			}
		}
	}`, processorSubID)
}

func (s *ReconcilerServiceSuite) seedSubscription(status string, eventAt time.Time) string {
	processorSubID := "sub_" + types.GenerateUUID()
	periodStart := eventAt
	periodEnd := eventAt.AddDate(0, 1, 0)
	event := processorEvent("customer.subscription.created", eventAt,
		subscriptionJSON(processorSubID, status, types.DefaultTenantID, periodStart, periodEnd))
	s.Require().NoError(s.service.ProcessEvent(s.GetContext(), event))
	return processorSubID
}

func (s *ReconcilerServiceSuite) TestSubscriptionCreated() {
	eventAt := s.GetNow().Truncate(time.Second)
	periodStart := eventAt
	periodEnd := eventAt.AddDate(0, 1, 0)

	event := processorEvent("customer.subscription.created", eventAt,
		subscriptionJSON("sub_100", "active", types.DefaultTenantID, periodStart, periodEnd))
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), "sub_100")
	s.Require().NoError(err)

	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.Equal("starter", sub.PlanID)
	s.Equal(types.DefaultTenantID, sub.TenantID)
	s.Equal("cus_42", sub.ProcessorCustomerID)
	s.Equal(types.PlanCadenceMonthly, sub.Cadence)
	s.True(sub.CurrentPeriodStart.Equal(periodStart))
	s.True(sub.CurrentPeriodEnd.Equal(periodEnd))
	s.True(sub.LastEventAt.Equal(eventAt))

	events := s.GetWebhookPublisher().EventsByName(types.WebhookEventSubscriptionCreated)
	s.Require().Len(events, 1)
	s.Equal(types.DefaultTenantID, events[0].TenantID)
}

func (s *ReconcilerServiceSuite) TestSubscriptionUpdated() {
	t1 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("trialing", t1)

	t2 := t1.Add(time.Hour)
	update := processorEvent("customer.subscription.updated", t2,
		subscriptionJSON(processorSubID, "active", types.DefaultTenantID, t1, t1.AddDate(0, 1, 0)))
	s.NoError(s.service.ProcessEvent(s.GetContext(), update))

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.True(sub.LastEventAt.Equal(t2))
}

func (s *ReconcilerServiceSuite) TestStaleEventDropped() {
	t2 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("active", t2)

	// An out-of-order older event must not regress the status
	t1 := t2.Add(-time.Hour)
	stale := processorEvent("customer.subscription.updated", t1,
		subscriptionJSON(processorSubID, "trialing", types.DefaultTenantID, t1, t1.AddDate(0, 1, 0)))
	s.NoError(s.service.ProcessEvent(s.GetContext(), stale))

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.True(sub.LastEventAt.Equal(t2))
}

func (s *ReconcilerServiceSuite) TestSameSecondEventApplies() {
	// The processor stamps event timestamps with second granularity, two
	// distinct events in the same second must both apply
	t1 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("trialing", t1)

	update := processorEvent("customer.subscription.updated", t1,
		subscriptionJSON(processorSubID, "active", types.DefaultTenantID, t1, t1.AddDate(0, 1, 0)))
	s.NoError(s.service.ProcessEvent(s.GetContext(), update))

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
}

func (s *ReconcilerServiceSuite) TestReplayedEventIdempotent() {
	t1 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("active", t1)

	replay := processorEvent("customer.subscription.updated", t1,
		subscriptionJSON(processorSubID, "active", types.DefaultTenantID, t1, t1.AddDate(0, 1, 0)))
	s.NoError(s.service.ProcessEvent(s.GetContext(), replay))

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.True(sub.LastEventAt.Equal(t1))
}

func (s *ReconcilerServiceSuite) TestStaleWriteLosesRaceAtStore() {
	// Two concurrently delivered events can both read the same stored
	// watermark. The slower, older one must fail the conditional write
	// instead of landing last and regressing newer state.
	t0 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("trialing", t0)

	staleCopy, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)

	t2 := t0.Add(2 * time.Hour)
	fresh := processorEvent("customer.subscription.updated", t2,
		subscriptionJSON(processorSubID, "active", types.DefaultTenantID, t0, t0.AddDate(0, 1, 0)))
	s.Require().NoError(s.service.ProcessEvent(s.GetContext(), fresh))

	// The stale handler finishes its write only now, against a watermark
	// it read before the fresh event applied
	staleCopy.SubscriptionStatus = types.SubscriptionStatusTrialing
	staleCopy.LastEventAt = t0.Add(time.Hour)
	applied, err := s.params.SubRepo.UpdateFromEvent(s.GetContext(), staleCopy)
	s.NoError(err)
	s.False(applied)

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.True(sub.LastEventAt.Equal(t2))
}

func (s *ReconcilerServiceSuite) TestSubscriptionDeletedIsTerminal() {
	t1 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("active", t1)

	t2 := t1.Add(time.Hour)
	deleted := processorEvent("customer.subscription.deleted", t2,
		fmt.Sprintf(`{"id": %q, "status": "canceled", "canceled_at": %d}`, processorSubID, t2.Unix()))
	s.NoError(s.service.ProcessEvent(s.GetContext(), deleted))

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, sub.SubscriptionStatus)
	s.Require().NotNil(sub.CanceledAt)
	s.True(sub.CanceledAt.Equal(t2))

	// Even a newer event cannot resurrect a canceled subscription
	t3 := t2.Add(time.Hour)
	revive := processorEvent("customer.subscription.updated", t3,
		subscriptionJSON(processorSubID, "active", types.DefaultTenantID, t1, t1.AddDate(0, 1, 0)))
	s.NoError(s.service.ProcessEvent(s.GetContext(), revive))

	sub, err = s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, sub.SubscriptionStatus)

	s.Len(s.GetWebhookPublisher().EventsByName(types.WebhookEventSubscriptionCanceled), 1)
}

func (s *ReconcilerServiceSuite) TestPaymentFailedMarksPastDue() {
	t1 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("active", t1)

	t2 := t1.Add(time.Hour)
	failed := processorEvent("invoice.payment_failed", t2, invoiceJSON(processorSubID))
	s.NoError(s.service.ProcessEvent(s.GetContext(), failed))

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)

	s.Len(s.GetWebhookPublisher().EventsByName(types.WebhookEventSubscriptionPastDue), 1)
}

func (s *ReconcilerServiceSuite) TestPaymentSucceededRecoversPastDue() {
	t1 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("past_due", t1)

	t2 := t1.Add(time.Hour)
	succeeded := processorEvent("invoice.payment_succeeded", t2, invoiceJSON(processorSubID))
	s.NoError(s.service.ProcessEvent(s.GetContext(), succeeded))

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
}

func (s *ReconcilerServiceSuite) TestPaymentSucceededNeverPromotesTrial() {
	t1 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("trialing", t1)

	t2 := t1.Add(time.Hour)
	succeeded := processorEvent("invoice.payment_succeeded", t2, invoiceJSON(processorSubID))
	s.NoError(s.service.ProcessEvent(s.GetContext(), succeeded))

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusTrialing, sub.SubscriptionStatus)
	s.True(sub.LastEventAt.Equal(t2), "the watermark still advances")
}

func (s *ReconcilerServiceSuite) TestMissingTenantMetadataSkipped() {
	eventAt := s.GetNow().Truncate(time.Second)
	event := processorEvent("customer.subscription.created", eventAt,
		subscriptionJSON("sub_no_tenant", "active", "", eventAt, eventAt.AddDate(0, 1, 0)))
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	_, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), "sub_no_tenant")
	s.Error(err)
}

func (s *ReconcilerServiceSuite) TestCheckoutCompletedLinksCustomer() {
	t1 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("active", t1)

	sub, err := s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	sub.ProcessorCustomerID = ""
	s.Require().NoError(s.params.SubRepo.Update(s.GetContext(), sub))

	completed := processorEvent("checkout.session.completed", t1.Add(time.Minute),
		fmt.Sprintf(`{"id": "cs_1", "customer": {"id": "cus_linked"}, "subscription": {"id": %q}}`, processorSubID))
	s.NoError(s.service.ProcessEvent(s.GetContext(), completed))

	sub, err = s.params.SubRepo.GetByProcessorSubscriptionID(s.GetContext(), processorSubID)
	s.Require().NoError(err)
	s.Equal("cus_linked", sub.ProcessorCustomerID)
}

func (s *ReconcilerServiceSuite) TestCheckoutCompletedBeforeSubscriptionEvent() {
	// The subscription event may not have arrived yet, the linkage is
	// deferred without error
	completed := processorEvent("checkout.session.completed", s.GetNow(),
		`{"id": "cs_1", "customer": {"id": "cus_1"}, "subscription": {"id": "sub_unseen"}}`)
	s.NoError(s.service.ProcessEvent(s.GetContext(), completed))
}

func (s *ReconcilerServiceSuite) TestUnhandledEventTypeIgnored() {
	event := processorEvent("customer.updated", s.GetNow(), `{"id": "cus_1"}`)
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))
}

func (s *ReconcilerServiceSuite) TestPlanChangeInvalidatesEntitlement() {
	t1 := s.GetNow().Truncate(time.Second)
	processorSubID := s.seedSubscription("active", t1)

	ent, err := s.entitlements.Resolve(s.GetContext(), types.DefaultTenantID)
	s.Require().NoError(err)
	s.Equal("starter", ent.PlanID)

	// The processor switches the price, metadata follows
	t2 := t1.Add(time.Hour)
	raw := fmt.Sprintf(`{
		"id": %q,
		"status": "active",
		"customer": {"id": "cus_42"},
		"metadata": {"tenant_id": %q, "plan_id": "professional"},
		"items": {
			"data": [{
				"current_period_start": %d,
				"current_period_end": %d,
				"price": {
					"id": "price_professional_monthly",
					"recurring": {"interval": "month"}
				}
			}]
		}
	}`, processorSubID, types.DefaultTenantID, t1.Unix(), t1.AddDate(0, 1, 0).Unix())
	s.NoError(s.service.ProcessEvent(s.GetContext(), processorEvent("customer.subscription.updated", t2, raw)))

	ent, err = s.entitlements.Resolve(s.GetContext(), types.DefaultTenantID)
	s.Require().NoError(err)
	s.Equal("professional", ent.PlanID)
	s.Equal(int64(50), ent.LimitFor("assessments"))
}
