package service

import (
	"context"

	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// PlanService exposes the plan catalog
type PlanService interface {
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	GetPlanByLookupKey(ctx context.Context, lookupKey string) (*dto.PlanResponse, error)
	GetPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error)
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{
		ServiceParams: params,
	}
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	p, err := s.Catalog.Get(id)
	if err != nil {
		return nil, err
	}
	return dto.NewPlanResponse(p), nil
}

func (s *planService) GetPlanByLookupKey(ctx context.Context, lookupKey string) (*dto.PlanResponse, error) {
	p, err := s.Catalog.GetByLookupKey(lookupKey)
	if err != nil {
		return nil, err
	}
	return dto.NewPlanResponse(p), nil
}

func (s *planService) GetPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error) {
	if filter == nil {
		filter = types.NewPlanFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	plans := s.Catalog.List(filter)

	items := make([]*dto.PlanResponse, len(plans))
	for i, p := range plans {
		items[i] = dto.NewPlanResponse(p)
	}
	return &dto.ListPlansResponse{
		Items: items,
		Total: len(items),
	}, nil
}
