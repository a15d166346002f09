package plan

import (
	"github.com/samber/lo"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// Plan is a single entry in the plan catalog. Plans are declared in the
// catalog file and loaded at startup, they are not tenant data.
type Plan struct {
	ID          string            `json:"id" mapstructure:"id"`
	LookupKey   string            `json:"lookup_key" mapstructure:"lookup_key"`
	Name        string            `json:"name" mapstructure:"name"`
	Description string            `json:"description" mapstructure:"description"`
	Cadence     types.PlanCadence `json:"cadence" mapstructure:"cadence"`
	Type        types.PlanType    `json:"type" mapstructure:"type"`

	// PriceAmount is the recurring price in the smallest currency unit
	PriceAmount int64  `json:"price_amount" mapstructure:"price_amount"`
	Currency    string `json:"currency" mapstructure:"currency"`

	// Features are granted flags, e.g. "sso" or "custom_reports".
	// AllFeatures short-circuits feature checks for top tiers.
	Features    []string `json:"features" mapstructure:"features"`
	AllFeatures bool     `json:"all_features" mapstructure:"all_features"`

	// Limits maps a metered resource to its cap for one billing period.
	// types.UnlimitedLimit (-1) means no cap.
	Limits map[string]int64 `json:"limits" mapstructure:"limits"`

	// OveragePrices maps a metered resource to the per-unit overage price
	// in the smallest currency unit. Absent means overage is not billable.
	OveragePrices map[string]int64 `json:"overage_prices" mapstructure:"overage_prices"`

	// InheritsFrom points at a parent plan whose features and limits this
	// plan extends. Child values win on conflict.
	InheritsFrom string `json:"inherits_from" mapstructure:"inherits_from"`

	TrialPeriodDays int      `json:"trial_period_days" mapstructure:"trial_period_days"`
	ComplianceTags  []string `json:"compliance_tags" mapstructure:"compliance_tags"`

	// StripePriceID links the plan to its billing processor price.
	// Plans without one cannot be purchased through checkout.
	StripePriceID string `json:"stripe_price_id" mapstructure:"stripe_price_id"`

	types.BaseModel
}

// Validate checks the structural integrity of a single plan entry
func (p *Plan) Validate() error {
	if p.ID == "" {
		return ierr.NewError("plan id is required").
			WithHint("Every catalog plan needs an id").
			Mark(ierr.ErrValidation)
	}
	if p.Name == "" {
		return ierr.NewError("plan name is required").
			WithHint("Every catalog plan needs a name").
			WithReportableDetails(map[string]any{"plan_id": p.ID}).
			Mark(ierr.ErrValidation)
	}
	if err := p.Cadence.Validate(); err != nil {
		return err
	}
	if err := p.Type.Validate(); err != nil {
		return err
	}
	if p.PriceAmount < 0 {
		return ierr.NewError("plan price must not be negative").
			WithHint("Plan price must be zero or positive").
			WithReportableDetails(map[string]any{"plan_id": p.ID, "price_amount": p.PriceAmount}).
			Mark(ierr.ErrValidation)
	}
	for resource, limit := range p.Limits {
		if limit < types.UnlimitedLimit {
			return ierr.NewError("invalid limit value").
				WithHint("Limits must be non-negative or -1 for unlimited").
				WithReportableDetails(map[string]any{
					"plan_id":  p.ID,
					"resource": resource,
					"limit":    limit,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// IsPurchasable reports whether a checkout session can be created for the plan
func (p *Plan) IsPurchasable() bool {
	return p.StripePriceID != "" && p.PriceAmount > 0 && p.Status == types.StatusPublished
}

// HasComplianceTag reports whether the plan carries the given compliance tag
func (p *Plan) HasComplianceTag(tag string) bool {
	return lo.Contains(p.ComplianceTags, tag)
}
