package types

import (
	"time"

	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
)

// MeteredResource is a usage-metered resource key, e.g. "vendors" or "assessments"
type MeteredResource string

func (r MeteredResource) String() string {
	return string(r)
}

func (r MeteredResource) Validate() error {
	if r == "" {
		return ierr.NewError("metered resource is required").
			WithHint("Resource key must not be empty").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UsageFilter represents the filter options for usage records
type UsageFilter struct {
	*QueryFilter
	*TimeRangeFilter

	Resource    *MeteredResource `json:"resource,omitempty" form:"resource" validate:"omitempty"`
	PeriodStart *time.Time       `json:"period_start,omitempty" form:"period_start" validate:"omitempty"`
	PeriodEnd   *time.Time       `json:"period_end,omitempty" form:"period_end" validate:"omitempty"`
}

// NewUsageFilter creates a new usage filter with default options
func NewUsageFilter() *UsageFilter {
	return &UsageFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitUsageFilter creates a new usage filter without pagination
func NewNoLimitUsageFilter() *UsageFilter {
	return &UsageFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the filter options
func (f *UsageFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return err
		}
	}
	if f.PeriodStart != nil && f.PeriodEnd != nil && f.PeriodEnd.Before(*f.PeriodStart) {
		return ierr.NewError("period_end must be after period_start").
			WithHint("Invalid usage period range").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetLimit implements BaseFilter interface
func (f *UsageFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset implements BaseFilter interface
func (f *UsageFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

// GetStatus implements BaseFilter interface
func (f *UsageFilter) GetStatus() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetStatus()
	}
	return f.QueryFilter.GetStatus()
}

// GetSort implements BaseFilter interface
func (f *UsageFilter) GetSort() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetSort()
	}
	return f.QueryFilter.GetSort()
}

// GetOrder implements BaseFilter interface
func (f *UsageFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOrder()
	}
	return f.QueryFilter.GetOrder()
}

// IsUnlimited implements BaseFilter interface
func (f *UsageFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}
