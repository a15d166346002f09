package service

import (
	"context"

	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/idempotency"
	stripeIntegration "github.com/vendorgraph/vendorgraph/internal/integration/stripe"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// CheckoutService starts hosted checkout and billing portal sessions with
// the payment processor
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, req *dto.CreateCheckoutRequest) (*dto.CheckoutResponse, error)
	CreatePortalSession(ctx context.Context, req *dto.CreatePortalRequest) (*dto.PortalResponse, error)
}

type checkoutService struct {
	ServiceParams
}

func NewCheckoutService(params ServiceParams) CheckoutService {
	return &checkoutService{
		ServiceParams: params,
	}
}

func (s *checkoutService) CreateCheckoutSession(ctx context.Context, req *dto.CreateCheckoutRequest) (*dto.CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenantID := types.GetTenantID(ctx)
	p, err := s.Catalog.Get(req.PlanID)
	if err != nil {
		return nil, err
	}
	if !p.IsPurchasable() {
		return nil, ierr.NewError("plan cannot be purchased").
			WithHint("The plan is not published or has no processor price").
			WithReportableDetails(map[string]any{
				"plan_id": p.ID,
			}).
			Mark(ierr.ErrNotPurchasable)
	}

	// An existing customer id keeps the new subscription on the same
	// processor customer
	customerID := ""
	if sub, err := s.SubRepo.GetCurrentForTenant(ctx, tenantID); err == nil {
		customerID = sub.ProcessorCustomerID
	}

	idempotencyKey := s.IdempGen.GenerateKey(idempotency.ScopeCheckout, map[string]interface{}{
		"tenant_id": tenantID,
		"plan_id":   p.ID,
	})

	session, err := s.StripeClient.CreateCheckoutSession(ctx, &stripeIntegration.CheckoutSessionRequest{
		TenantID:         tenantID,
		StripeCustomerID: customerID,
		StripePriceID:    p.StripePriceID,
		TrialPeriodDays:  p.TrialPeriodDays,
		SuccessURL:       req.SuccessURL,
		CancelURL:        req.CancelURL,
		Metadata: map[string]string{
			"plan_id":         p.ID,
			"idempotency_key": idempotencyKey,
		},
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("checkout session created",
		"tenant_id", tenantID,
		"plan_id", p.ID,
		"session_id", session.ID,
	)

	return &dto.CheckoutResponse{
		SessionID: session.ID,
		URL:       session.URL,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *checkoutService) CreatePortalSession(ctx context.Context, req *dto.CreatePortalRequest) (*dto.PortalResponse, error) {
	tenantID := types.GetTenantID(ctx)

	sub, err := s.SubRepo.GetCurrentForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sub.ProcessorCustomerID == "" {
		return nil, ierr.NewError("no billing account for tenant").
			WithHint("The tenant has no processor customer to manage").
			WithReportableDetails(map[string]any{
				"tenant_id":       tenantID,
				"subscription_id": sub.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = s.Config.Stripe.PortalReturnURL
	}

	session, err := s.StripeClient.CreatePortalSession(ctx, &stripeIntegration.PortalSessionRequest{
		TenantID:         tenantID,
		StripeCustomerID: sub.ProcessorCustomerID,
		ReturnURL:        returnURL,
	})
	if err != nil {
		return nil, err
	}

	return &dto.PortalResponse{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}
