package dto

import (
	"github.com/vendorgraph/vendorgraph/internal/domain/entitlement"
)

// EntitlementResponse is the resolved entitlement summary for a tenant
type EntitlementResponse struct {
	*entitlement.Entitlement
}

// NewEntitlementResponse creates an entitlement response
func NewEntitlementResponse(e *entitlement.Entitlement) *EntitlementResponse {
	return &EntitlementResponse{Entitlement: e}
}

// FeatureCheckResponse answers a single feature flag check
type FeatureCheckResponse struct {
	Feature  string `json:"feature"`
	Allowed  bool   `json:"allowed"`
	PlanID   string `json:"plan_id"`
	PlanName string `json:"plan_name"`
}
