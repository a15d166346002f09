package entitlement

import (
	"time"

	"github.com/samber/lo"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// Source records where an entitlement was derived from
type Source string

const (
	// SourceSubscription means the tenant's subscription references a known plan
	SourceSubscription Source = "subscription"
	// SourceFallback means the plan id was unknown and the restrictive
	// fallback plan was applied instead
	SourceFallback Source = "fallback"
)

// Entitlement is the resolved view of what a tenant may do right now.
// It is derived from the subscription and the plan catalog, never stored.
type Entitlement struct {
	TenantID       string                   `json:"tenant_id"`
	SubscriptionID string                   `json:"subscription_id"`
	PlanID         string                   `json:"plan_id"`
	PlanName       string                   `json:"plan_name"`
	Status         types.SubscriptionStatus `json:"status"`
	Source         Source                   `json:"source"`

	// AddonPlanIDs lists the addon plans merged into this entitlement
	AddonPlanIDs []string `json:"addon_plan_ids,omitempty"`

	Features    []string `json:"features"`
	AllFeatures bool     `json:"all_features"`

	Limits        map[string]int64 `json:"limits"`
	OveragePrices map[string]int64 `json:"overage_prices"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// HasFeature reports whether the entitlement grants a feature flag
func (e *Entitlement) HasFeature(feature string) bool {
	if e.AllFeatures {
		return true
	}
	return lo.Contains(e.Features, feature)
}

// LimitFor returns the cap for a metered resource. Resources absent from
// the plan have a limit of zero, nothing is granted implicitly.
func (e *Entitlement) LimitFor(resource types.MeteredResource) int64 {
	if limit, ok := e.Limits[resource.String()]; ok {
		return limit
	}
	return 0
}

// IsUnlimited reports whether a resource has no cap
func (e *Entitlement) IsUnlimited(resource types.MeteredResource) bool {
	return e.LimitFor(resource) == types.UnlimitedLimit
}

// OveragePriceFor returns the per-unit overage price for a resource and
// whether overage is billable at all
func (e *Entitlement) OveragePriceFor(resource types.MeteredResource) (int64, bool) {
	price, ok := e.OveragePrices[resource.String()]
	return price, ok
}
