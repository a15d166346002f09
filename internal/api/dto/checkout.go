package dto

import (
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
)

// CreateCheckoutRequest starts a hosted checkout for a catalog plan
type CreateCheckoutRequest struct {
	PlanID     string `json:"plan_id" validate:"required"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

func (r *CreateCheckoutRequest) Validate() error {
	if r.PlanID == "" {
		return ierr.NewError("plan_id is required").
			WithHint("Provide the plan to purchase").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CheckoutResponse is the hosted checkout handle
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// CreatePortalRequest starts a hosted billing portal session
type CreatePortalRequest struct {
	ReturnURL string `json:"return_url,omitempty"`
}

// PortalResponse is the hosted portal handle
type PortalResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
