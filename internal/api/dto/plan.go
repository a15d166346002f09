package dto

import (
	"github.com/vendorgraph/vendorgraph/internal/domain/plan"
)

// PlanResponse represents a plan in API responses
type PlanResponse struct {
	*plan.Plan
}

// NewPlanResponse creates a new plan response from a resolved plan
func NewPlanResponse(p *plan.Plan) *PlanResponse {
	return &PlanResponse{Plan: p}
}

// ListPlansResponse represents a paginated list of plans
type ListPlansResponse struct {
	Items []*PlanResponse `json:"items"`
	Total int             `json:"total"`
}
