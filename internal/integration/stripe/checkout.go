package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
)

// CheckoutSessionRequest describes a subscription checkout to be started
type CheckoutSessionRequest struct {
	TenantID         string
	StripeCustomerID string
	StripePriceID    string
	TrialPeriodDays  int
	SuccessURL       string
	CancelURL        string
	Metadata         map[string]string
}

// CheckoutSessionResponse is the hosted checkout handle returned to the caller
type CheckoutSessionResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

// PortalSessionRequest describes a billing portal session to be started
type PortalSessionRequest struct {
	TenantID         string
	StripeCustomerID string
	ReturnURL        string
}

// PortalSessionResponse is the hosted portal handle returned to the caller
type PortalSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession starts a hosted subscription checkout
func (c *Client) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSessionResponse, error) {
	stripeClient, err := c.API()
	if err != nil {
		return nil, err
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = c.cfg.Stripe.SuccessURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = c.cfg.Stripe.CancelURL
	}

	metadata := map[string]string{
		"tenant_id": req.TenantID,
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		Metadata:   metadata,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Price:    stripe.String(req.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionCreateSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if req.StripeCustomerID != "" {
		params.Customer = stripe.String(req.StripeCustomerID)
	}
	if req.TrialPeriodDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(req.TrialPeriodDays))
	}

	session, err := stripeClient.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create Stripe checkout session",
			"error", err,
			"tenant_id", req.TenantID,
			"price_id", req.StripePriceID,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to create checkout session").
			WithReportableDetails(map[string]any{
				"tenant_id": req.TenantID,
			}).
			Mark(ierr.ErrGatewayUnavailable)
	}

	return &CheckoutSessionResponse{
		ID:        session.ID,
		URL:       session.URL,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// CreatePortalSession starts a hosted billing portal session
func (c *Client) CreatePortalSession(ctx context.Context, req *PortalSessionRequest) (*PortalSessionResponse, error) {
	stripeClient, err := c.API()
	if err != nil {
		return nil, err
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = c.cfg.Stripe.PortalReturnURL
	}

	params := &stripe.BillingPortalSessionCreateParams{
		Customer:  stripe.String(req.StripeCustomerID),
		ReturnURL: stripe.String(returnURL),
	}

	session, err := stripeClient.V1BillingPortalSessions.Create(ctx, params)
	if err != nil {
		c.logger.Errorw("failed to create Stripe portal session",
			"error", err,
			"tenant_id", req.TenantID,
			"customer_id", req.StripeCustomerID,
		)
		return nil, ierr.WithError(err).
			WithHint("Unable to create billing portal session").
			WithReportableDetails(map[string]any{
				"tenant_id": req.TenantID,
			}).
			Mark(ierr.ErrGatewayUnavailable)
	}

	return &PortalSessionResponse{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}
