package dto

import (
	"time"

	"github.com/vendorgraph/vendorgraph/internal/domain/usage"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// GateCheckRequest asks whether a tenant may consume more of a resource
type GateCheckRequest struct {
	Resource string `json:"resource" form:"resource" validate:"required"`
	// Quantity is the amount about to be consumed, defaults to 1
	Quantity int64 `json:"quantity" form:"quantity"`
}

func (r *GateCheckRequest) Validate() error {
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	if r.Quantity < 0 {
		return ierr.NewError("quantity must be positive").
			WithHint("Gate checks require a positive quantity").
			Mark(ierr.ErrValidation)
	}
	return types.MeteredResource(r.Resource).Validate()
}

// ConsumeUsageRequest atomically checks the gate and records usage
type ConsumeUsageRequest struct {
	Resource string `json:"resource" validate:"required"`
	Quantity int64  `json:"quantity"`
	// DedupKey makes the consumption idempotent. Required so retries
	// can never double-count.
	DedupKey string `json:"dedup_key" validate:"required"`
}

func (r *ConsumeUsageRequest) Validate() error {
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	if r.Quantity < 0 {
		return ierr.NewError("quantity must be positive").
			WithHint("Usage is consumed in positive increments only").
			Mark(ierr.ErrValidation)
	}
	if r.DedupKey == "" {
		return ierr.NewError("dedup_key is required").
			WithHint("Provide a deduplication key for idempotent consumption").
			Mark(ierr.ErrValidation)
	}
	return types.MeteredResource(r.Resource).Validate()
}

// GateResult is the outcome of a gate check or consumption attempt
type GateResult struct {
	Allowed   bool   `json:"allowed"`
	Resource  string `json:"resource"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
	PlanID    string `json:"plan_id"`
	PlanName  string `json:"plan_name"`
	// OverageUnitPrice is set on a denied result when the plan prices
	// overage for this resource, so callers can offer it as an
	// alternative to upgrading
	OverageUnitPrice *int64 `json:"overage_unit_price,omitempty"`
}

// UsageRecordResponse represents one ledger entry
type UsageRecordResponse struct {
	*usage.UsageRecord
}

// NewUsageRecordResponse creates a usage record response
func NewUsageRecordResponse(r *usage.UsageRecord) *UsageRecordResponse {
	return &UsageRecordResponse{UsageRecord: r}
}

// ListUsageResponse represents a page of the usage ledger
type ListUsageResponse struct {
	Items []*UsageRecordResponse `json:"items"`
	Total int                    `json:"total"`
}

// UsageSummaryResponse reports period consumption for one resource
type UsageSummaryResponse struct {
	Resource    string    `json:"resource"`
	Used        int64     `json:"used"`
	Limit       int64     `json:"limit"`
	Remaining   int64     `json:"remaining"`
	Unlimited   bool      `json:"unlimited"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}
