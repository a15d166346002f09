package dto

import (
	"time"

	"github.com/shopspring/decimal"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// OverageChargeRequest asks for the overage amount owed for a resource
// in the current billing period
type OverageChargeRequest struct {
	Resource string `json:"resource" form:"resource" validate:"required"`
}

func (r *OverageChargeRequest) Validate() error {
	return types.MeteredResource(r.Resource).Validate()
}

// OverageChargeResponse is the computed overage for one resource
type OverageChargeResponse struct {
	Resource     string          `json:"resource"`
	Used         int64           `json:"used"`
	Limit        int64           `json:"limit"`
	OverageUnits int64           `json:"overage_units"`
	UnitPrice    int64           `json:"unit_price"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	// Billable is false when the plan configures no overage price,
	// the amount is zero in that case
	Billable    bool      `json:"billable"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// ProrationPreviewRequest previews the cost of switching plans mid-period
type ProrationPreviewRequest struct {
	NewPlanID string `json:"new_plan_id" validate:"required"`
	// ChangeAt defaults to now when zero
	ChangeAt *time.Time `json:"change_at,omitempty"`
}

func (r *ProrationPreviewRequest) Validate() error {
	if r.NewPlanID == "" {
		return ierr.NewError("new_plan_id is required").
			WithHint("Provide the plan to switch to").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ProrationPreviewResponse is the prorated credit and charge for a plan change
type ProrationPreviewResponse struct {
	OldPlanID   string          `json:"old_plan_id"`
	NewPlanID   string          `json:"new_plan_id"`
	Coefficient decimal.Decimal `json:"coefficient"`
	Credit      decimal.Decimal `json:"credit"`
	Charge      decimal.Decimal `json:"charge"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	Currency    string          `json:"currency"`
	ChangeAt    time.Time       `json:"change_at"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
}
