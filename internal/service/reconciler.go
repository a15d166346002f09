package service

import (
	"context"
	"encoding/json"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/types"
	webhookDto "github.com/vendorgraph/vendorgraph/internal/webhook/dto"
)

// ReconcilerService converges the local subscription mirror from payment
// processor webhook events. Application is idempotent and never out of
// order, a stale event is dropped silently.
type ReconcilerService interface {
	ProcessEvent(ctx context.Context, event *stripeapi.Event) error
}

type reconcilerService struct {
	ServiceParams
	entitlements EntitlementService
}

func NewReconcilerService(params ServiceParams, entitlements EntitlementService) ReconcilerService {
	return &reconcilerService{
		ServiceParams: params,
		entitlements:  entitlements,
	}
}

func (s *reconcilerService) ProcessEvent(ctx context.Context, event *stripeapi.Event) error {
	s.Logger.Infow("processing processor event",
		"event_id", event.ID,
		"event_type", event.Type,
	)

	switch string(event.Type) {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		return s.handleSubscriptionUpserted(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_succeeded":
		return s.handlePaymentSucceeded(ctx, event)
	case "invoice.payment_failed":
		return s.handlePaymentFailed(ctx, event)
	default:
		s.Logger.Debugw("unhandled processor event type", "event_type", event.Type)
		return nil
	}
}

// handleCheckoutCompleted links the processor customer onto the local row.
// The authoritative subscription state arrives on customer.subscription.*
// events, which may land before or after this one.
func (s *reconcilerService) handleCheckoutCompleted(ctx context.Context, event *stripeapi.Event) error {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid checkout session data in webhook").
			Mark(ierr.ErrValidation)
	}

	if session.Subscription == nil {
		s.Logger.Debugw("checkout session has no subscription", "session_id", session.ID)
		return nil
	}

	sub, err := s.SubRepo.GetByProcessorSubscriptionID(ctx, session.Subscription.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Infow("checkout completed before subscription event, deferring",
				"session_id", session.ID,
				"processor_subscription_id", session.Subscription.ID,
			)
			return nil
		}
		return err
	}

	if session.Customer != nil && sub.ProcessorCustomerID == "" {
		sub.ProcessorCustomerID = session.Customer.ID
		sub.UpdatedAt = time.Now().UTC()
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

func (s *reconcilerService) handleSubscriptionUpserted(ctx context.Context, event *stripeapi.Event) error {
	var stripeSub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	tenantID := stripeSub.Metadata["tenant_id"]
	if tenantID == "" {
		s.Logger.Warnw("subscription event carries no tenant metadata, skipping",
			"processor_subscription_id", stripeSub.ID,
			"event_id", event.ID,
		)
		return nil
	}

	eventAt := time.Unix(event.Created, 0).UTC()

	existing, err := s.SubRepo.GetByProcessorSubscriptionID(ctx, stripeSub.ID)
	if err != nil && !ierr.IsNotFound(err) {
		return err
	}

	if existing == nil {
		sub := s.newSubscriptionFromProcessor(ctx, tenantID, &stripeSub, eventAt)
		if err := s.SubRepo.Create(ctx, sub); err != nil {
			if ierr.IsAlreadyExists(err) {
				// Concurrent delivery created the row first, the retry
				// will take the update path
				return nil
			}
			return err
		}
		s.afterChange(ctx, sub, types.WebhookEventSubscriptionCreated)
		return nil
	}

	if !existing.ShouldApplyEvent(eventAt) {
		s.Logger.Infow("dropping stale subscription event",
			"subscription_id", existing.ID,
			"event_id", event.ID,
			"event_at", eventAt,
			"last_event_at", existing.LastEventAt,
		)
		return nil
	}

	prevStatus := existing.SubscriptionStatus
	s.applyProcessorState(existing, &stripeSub, eventAt)
	applied, err := s.SubRepo.UpdateFromEvent(ctx, existing)
	if err != nil {
		return err
	}
	if !applied {
		// A concurrently delivered newer event won the write race
		return nil
	}

	eventName := types.WebhookEventSubscriptionUpdated
	switch {
	case existing.SubscriptionStatus == types.SubscriptionStatusCanceled:
		eventName = types.WebhookEventSubscriptionCanceled
	case existing.SubscriptionStatus == types.SubscriptionStatusPastDue && prevStatus != types.SubscriptionStatusPastDue:
		eventName = types.WebhookEventSubscriptionPastDue
	}
	s.afterChange(ctx, existing, eventName)
	return nil
}

func (s *reconcilerService) handleSubscriptionDeleted(ctx context.Context, event *stripeapi.Event) error {
	var stripeSub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubRepo.GetByProcessorSubscriptionID(ctx, stripeSub.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("deletion event for unknown subscription",
				"processor_subscription_id", stripeSub.ID,
			)
			return nil
		}
		return err
	}

	eventAt := time.Unix(event.Created, 0).UTC()
	if !sub.ShouldApplyEvent(eventAt) {
		return nil
	}

	now := time.Now().UTC()
	canceledAt := now
	if stripeSub.CanceledAt != 0 {
		canceledAt = time.Unix(stripeSub.CanceledAt, 0).UTC()
	}
	sub.SubscriptionStatus = types.SubscriptionStatusCanceled
	sub.CanceledAt = &canceledAt
	sub.LastEventAt = eventAt
	sub.UpdatedAt = now

	applied, err := s.SubRepo.UpdateFromEvent(ctx, sub)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	s.afterChange(ctx, sub, types.WebhookEventSubscriptionCanceled)
	return nil
}

func (s *reconcilerService) handlePaymentSucceeded(ctx context.Context, event *stripeapi.Event) error {
	return s.applyPaymentOutcome(ctx, event, types.SubscriptionStatusActive)
}

func (s *reconcilerService) handlePaymentFailed(ctx context.Context, event *stripeapi.Event) error {
	return s.applyPaymentOutcome(ctx, event, types.SubscriptionStatusPastDue)
}

func (s *reconcilerService) applyPaymentOutcome(ctx context.Context, event *stripeapi.Event, status types.SubscriptionStatus) error {
	var invoice stripeapi.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}

	processorSubID := invoiceSubscriptionID(&invoice)
	if processorSubID == "" {
		s.Logger.Debugw("invoice event not tied to a subscription", "invoice_id", invoice.ID)
		return nil
	}

	sub, err := s.SubRepo.GetByProcessorSubscriptionID(ctx, processorSubID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Warnw("invoice event for unknown subscription",
				"processor_subscription_id", processorSubID,
			)
			return nil
		}
		return err
	}

	eventAt := time.Unix(event.Created, 0).UTC()
	if !sub.ShouldApplyEvent(eventAt) {
		return nil
	}
	if sub.SubscriptionStatus == status {
		// Still advance the watermark so older events stay dropped
		sub.LastEventAt = eventAt
		_, err := s.SubRepo.UpdateFromEvent(ctx, sub)
		return err
	}

	// A succeeded payment only recovers a delinquent subscription, it
	// never promotes a trial early
	if status == types.SubscriptionStatusActive && sub.SubscriptionStatus != types.SubscriptionStatusPastDue {
		sub.LastEventAt = eventAt
		_, err := s.SubRepo.UpdateFromEvent(ctx, sub)
		return err
	}

	sub.SubscriptionStatus = status
	sub.LastEventAt = eventAt
	sub.UpdatedAt = time.Now().UTC()
	applied, err := s.SubRepo.UpdateFromEvent(ctx, sub)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	eventName := types.WebhookEventSubscriptionUpdated
	if status == types.SubscriptionStatusPastDue {
		eventName = types.WebhookEventSubscriptionPastDue
	}
	s.afterChange(ctx, sub, eventName)
	return nil
}

func (s *reconcilerService) newSubscriptionFromProcessor(ctx context.Context, tenantID string, stripeSub *stripeapi.Subscription, eventAt time.Time) *subscription.Subscription {
	ctx = context.WithValue(ctx, types.CtxTenantID, tenantID)

	sub := &subscription.Subscription{
		ID:                      types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		ProcessorSubscriptionID: stripeSub.ID,
		BaseModel:               types.GetDefaultBaseModel(ctx),
	}
	s.applyProcessorState(sub, stripeSub, eventAt)
	return sub
}

// applyProcessorState maps processor subscription state onto the local row
func (s *reconcilerService) applyProcessorState(sub *subscription.Subscription, stripeSub *stripeapi.Subscription, eventAt time.Time) {
	sub.SubscriptionStatus = mapProcessorStatus(stripeSub.Status)
	sub.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd
	sub.LastEventAt = eventAt
	sub.UpdatedAt = time.Now().UTC()

	if stripeSub.Customer != nil {
		sub.ProcessorCustomerID = stripeSub.Customer.ID
	}
	if stripeSub.TrialEnd != 0 {
		trialEnd := time.Unix(stripeSub.TrialEnd, 0).UTC()
		sub.TrialEnd = &trialEnd
	}
	if stripeSub.CanceledAt != 0 {
		canceledAt := time.Unix(stripeSub.CanceledAt, 0).UTC()
		sub.CanceledAt = &canceledAt
	}

	if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 {
		item := stripeSub.Items.Data[0]
		if item.CurrentPeriodStart != 0 {
			sub.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		}
		if item.CurrentPeriodEnd != 0 {
			sub.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		}
		if item.Price != nil {
			sub.Cadence = mapProcessorCadence(item.Price)
			if p, err := s.Catalog.GetByStripePriceID(item.Price.ID); err == nil {
				sub.PlanID = p.ID
			}
		}
	}

	// Metadata plan id wins over price lookup, checkout stamps it
	if planID := stripeSub.Metadata["plan_id"]; planID != "" {
		sub.PlanID = planID
	}
}

// afterChange invalidates the tenant's cached entitlement and emits the
// outbound webhook for the applied event
func (s *reconcilerService) afterChange(ctx context.Context, sub *subscription.Subscription, eventName string) {
	s.entitlements.InvalidateCache(ctx, sub.TenantID)

	if s.WebhookPublisher == nil {
		return
	}

	payload, err := json.Marshal(&webhookDto.InternalSubscriptionEvent{
		EventType:      eventName,
		SubscriptionID: sub.ID,
		TenantID:       sub.TenantID,
	})
	if err != nil {
		s.Logger.Errorw("failed to marshal subscription event", "error", err)
		return
	}

	event := &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: eventName,
		TenantID:  sub.TenantID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if err := s.WebhookPublisher.PublishWebhook(ctx, event); err != nil {
		s.Logger.Errorw("failed to publish subscription webhook",
			"tenant_id", sub.TenantID,
			"subscription_id", sub.ID,
			"event_name", eventName,
			"error", err,
		)
	}
}

func invoiceSubscriptionID(invoice *stripeapi.Invoice) string {
	if invoice.Parent == nil || invoice.Parent.SubscriptionDetails == nil {
		return ""
	}
	if invoice.Parent.SubscriptionDetails.Subscription == nil {
		return ""
	}
	return invoice.Parent.SubscriptionDetails.Subscription.ID
}

func mapProcessorStatus(status stripeapi.SubscriptionStatus) types.SubscriptionStatus {
	switch status {
	case stripeapi.SubscriptionStatusTrialing:
		return types.SubscriptionStatusTrialing
	case stripeapi.SubscriptionStatusActive:
		return types.SubscriptionStatusActive
	case stripeapi.SubscriptionStatusPastDue,
		stripeapi.SubscriptionStatusUnpaid,
		stripeapi.SubscriptionStatusIncomplete:
		return types.SubscriptionStatusPastDue
	case stripeapi.SubscriptionStatusCanceled,
		stripeapi.SubscriptionStatusIncompleteExpired:
		return types.SubscriptionStatusCanceled
	default:
		return types.SubscriptionStatusPastDue
	}
}

func mapProcessorCadence(price *stripeapi.Price) types.PlanCadence {
	if price.Recurring == nil {
		return types.PlanCadenceOneTime
	}
	if price.Recurring.Interval == stripeapi.PriceRecurringIntervalYear {
		return types.PlanCadenceAnnual
	}
	return types.PlanCadenceMonthly
}
