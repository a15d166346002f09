package types

import (
	"github.com/samber/lo"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
)

// PlanCadence is the billing cadence of a plan
type PlanCadence string

const (
	PlanCadenceMonthly PlanCadence = "monthly"
	PlanCadenceAnnual  PlanCadence = "annual"
	PlanCadenceOneTime PlanCadence = "one_time"
)

func (c PlanCadence) String() string {
	return string(c)
}

func (c PlanCadence) Validate() error {
	allowed := []PlanCadence{
		PlanCadenceMonthly,
		PlanCadenceAnnual,
		PlanCadenceOneTime,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid plan cadence").
			WithHint("Invalid plan cadence").
			WithReportableDetails(map[string]any{
				"cadence":        c,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PlanType distinguishes standalone tiers from addons and bundles.
// Only main plans participate in the restrictive fallback for unknown plan ids.
type PlanType string

const (
	PlanTypeMain   PlanType = "main"
	PlanTypeAddon  PlanType = "addon"
	PlanTypeBundle PlanType = "bundle"
)

func (t PlanType) String() string {
	return string(t)
}

func (t PlanType) Validate() error {
	allowed := []PlanType{
		PlanTypeMain,
		PlanTypeAddon,
		PlanTypeBundle,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid plan type").
			WithHint("Invalid plan type").
			WithReportableDetails(map[string]any{
				"type":           t,
				"allowed_values": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UnlimitedLimit is the sentinel value for a limit with no cap
const UnlimitedLimit int64 = -1

// PlanFilter represents the filter options for plans
type PlanFilter struct {
	*QueryFilter

	PlanIDs []string     `json:"plan_ids,omitempty" form:"plan_ids" validate:"omitempty"`
	Type    *PlanType    `json:"type,omitempty" form:"type" validate:"omitempty"`
	Cadence *PlanCadence `json:"cadence,omitempty" form:"cadence" validate:"omitempty"`
}

// NewPlanFilter creates a new plan filter with default options
func NewPlanFilter() *PlanFilter {
	return &PlanFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitPlanFilter creates a new plan filter without pagination
func NewNoLimitPlanFilter() *PlanFilter {
	return &PlanFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the filter options
func (f *PlanFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	for _, planID := range f.PlanIDs {
		if planID == "" {
			return ierr.NewError("plan id can not be empty").
				WithHint("Plan info can not be empty").
				Mark(ierr.ErrValidation)
		}
	}
	if f.Type != nil {
		if err := f.Type.Validate(); err != nil {
			return err
		}
	}
	if f.Cadence != nil {
		if err := f.Cadence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GetLimit implements BaseFilter interface
func (f *PlanFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements BaseFilter interface
func (f *PlanFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

// GetStatus implements BaseFilter interface
func (f *PlanFilter) GetStatus() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetStatus()
	}
	return f.QueryFilter.GetStatus()
}

// GetSort implements BaseFilter interface
func (f *PlanFilter) GetSort() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetSort()
	}
	return f.QueryFilter.GetSort()
}

// GetOrder implements BaseFilter interface
func (f *PlanFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOrder()
	}
	return f.QueryFilter.GetOrder()
}

// IsUnlimited implements BaseFilter interface
func (f *PlanFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}
