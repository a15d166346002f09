package service

import (
	"context"

	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// SubscriptionService exposes the local subscription mirror for reads.
// All writes go through the reconciler.
type SubscriptionService interface {
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) (*dto.ListSubscriptionsResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
	}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	if id == "" {
		return nil, ierr.NewError("subscription id is required").
			WithHint("Provide the subscription id").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub, s.planName(sub)), nil
}

func (s *subscriptionService) GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetCurrentForTenant(ctx, types.GetTenantID(ctx))
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub, s.planName(sub)), nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) (*dto.ListSubscriptionsResponse, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	subs, err := s.SubRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.SubRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SubscriptionResponse, len(subs))
	for i, sub := range subs {
		items[i] = dto.NewSubscriptionResponse(sub, s.planName(sub))
	}
	return &dto.ListSubscriptionsResponse{
		Items: items,
		Total: total,
	}, nil
}

func (s *subscriptionService) planName(sub *subscription.Subscription) string {
	p, err := s.Catalog.Get(sub.PlanID)
	if err != nil {
		return ""
	}
	return p.Name
}
