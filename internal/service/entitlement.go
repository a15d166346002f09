package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	"github.com/vendorgraph/vendorgraph/internal/cache"
	"github.com/vendorgraph/vendorgraph/internal/domain/entitlement"
	"github.com/vendorgraph/vendorgraph/internal/domain/plan"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// EntitlementService resolves what a tenant may do from its subscription
// and the plan catalog
type EntitlementService interface {
	// Resolve derives the entitlement for a tenant. The result is cached
	// until the reconciler invalidates it.
	Resolve(ctx context.Context, tenantID string) (*entitlement.Entitlement, error)

	GetEntitlement(ctx context.Context) (*dto.EntitlementResponse, error)
	CheckFeature(ctx context.Context, feature string) (*dto.FeatureCheckResponse, error)

	// InvalidateCache drops the cached entitlement for a tenant
	InvalidateCache(ctx context.Context, tenantID string)
}

type entitlementService struct {
	ServiceParams
}

func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{
		ServiceParams: params,
	}
}

func (s *entitlementService) Resolve(ctx context.Context, tenantID string) (*entitlement.Entitlement, error) {
	if tenantID == "" {
		return nil, ierr.NewError("tenant id is required").
			WithHint("Entitlements are resolved per tenant").
			Mark(ierr.ErrValidation)
	}

	cacheKey := cache.GenerateKey(cache.PrefixEntitlement, tenantID)
	if cached, found := s.Cache.Get(ctx, cacheKey); found {
		if ent, ok := cached.(*entitlement.Entitlement); ok {
			return ent, nil
		}
	}

	subs, err := s.entitledSubscriptions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ierr.NewError("no active subscription for tenant").
			WithHint("The tenant has no subscription granting access").
			WithReportableDetails(map[string]any{"tenant_id": tenantID}).
			Mark(ierr.ErrNotFound)
	}

	// The newest subscription on a main plan anchors the entitlement,
	// addon subscriptions only widen it
	var mainSub *subscription.Subscription
	var mainPlan *plan.Plan
	type addonSub struct {
		sub *subscription.Subscription
		p   *plan.Plan
	}
	var addons []addonSub

	for _, sub := range subs {
		p, err := s.Catalog.Get(sub.PlanID)
		if err != nil {
			continue
		}
		switch p.Type {
		case types.PlanTypeMain:
			if mainSub == nil {
				mainSub = sub
				mainPlan = p
			}
		default:
			addons = append(addons, addonSub{sub: sub, p: p})
		}
	}

	source := entitlement.SourceSubscription
	if mainSub == nil {
		// No subscription maps to a known main plan. Fail closed onto the
		// restrictive fallback instead of granting or denying everything.
		fallback := s.Catalog.Fallback()
		if fallback == nil {
			return nil, ierr.NewError("no plan available for subscription").
				WithHint("The subscription references an unknown plan and no fallback exists").
				WithReportableDetails(map[string]any{
					"tenant_id": tenantID,
					"plan_id":   subs[0].PlanID,
				}).
				Mark(ierr.ErrCatalogIntegrity)
		}
		s.Logger.Warnw("subscription references unknown plan, applying fallback",
			"tenant_id", tenantID,
			"plan_id", subs[0].PlanID,
			"fallback_plan_id", fallback.ID,
		)
		mainSub = subs[0]
		mainPlan = fallback
		source = entitlement.SourceFallback
	}

	ent := buildEntitlement(mainSub, mainPlan, source)
	for _, a := range addons {
		mergeAddon(ent, a.p)
	}

	s.Cache.Set(ctx, cacheKey, ent, cache.DefaultExpiration)
	return ent, nil
}

// entitledSubscriptions returns the tenant's subscriptions that still grant
// access, newest first
func (s *entitlementService) entitledSubscriptions(ctx context.Context, tenantID string) ([]*subscription.Subscription, error) {
	filter := &types.SubscriptionFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		TenantIDs:   []string{tenantID},
		SubscriptionStatus: []types.SubscriptionStatus{
			types.SubscriptionStatusTrialing,
			types.SubscriptionStatusActive,
			types.SubscriptionStatusPastDue,
		},
	}
	return s.SubRepo.List(ctx, filter)
}

// mergeAddon widens an entitlement with an addon plan. Features union,
// limits take the larger value with unlimited dominating, overage prices
// fill in only where the base plan has none.
func mergeAddon(ent *entitlement.Entitlement, p *plan.Plan) {
	ent.AddonPlanIDs = append(ent.AddonPlanIDs, p.ID)
	ent.AllFeatures = ent.AllFeatures || p.AllFeatures

	for _, f := range p.Features {
		if !lo.Contains(ent.Features, f) {
			ent.Features = append(ent.Features, f)
		}
	}

	for resource, limit := range p.Limits {
		current, ok := ent.Limits[resource]
		if !ok {
			ent.Limits[resource] = limit
			continue
		}
		if current == types.UnlimitedLimit {
			continue
		}
		if limit == types.UnlimitedLimit || limit > current {
			ent.Limits[resource] = limit
		}
	}

	for resource, price := range p.OveragePrices {
		if _, ok := ent.OveragePrices[resource]; !ok {
			ent.OveragePrices[resource] = price
		}
	}
}

func (s *entitlementService) GetEntitlement(ctx context.Context) (*dto.EntitlementResponse, error) {
	ent, err := s.Resolve(ctx, types.GetTenantID(ctx))
	if err != nil {
		return nil, err
	}
	return dto.NewEntitlementResponse(ent), nil
}

func (s *entitlementService) CheckFeature(ctx context.Context, feature string) (*dto.FeatureCheckResponse, error) {
	if feature == "" {
		return nil, ierr.NewError("feature is required").
			WithHint("Provide the feature flag to check").
			Mark(ierr.ErrValidation)
	}

	ent, err := s.Resolve(ctx, types.GetTenantID(ctx))
	if err != nil {
		return nil, err
	}

	return &dto.FeatureCheckResponse{
		Feature:  feature,
		Allowed:  ent.HasFeature(feature),
		PlanID:   ent.PlanID,
		PlanName: ent.PlanName,
	}, nil
}

func (s *entitlementService) InvalidateCache(ctx context.Context, tenantID string) {
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixEntitlement, tenantID))
}

// buildEntitlement copies the plan's grants so addon merging never mutates
// the immutable catalog
func buildEntitlement(sub *subscription.Subscription, p *plan.Plan, source entitlement.Source) *entitlement.Entitlement {
	limits := make(map[string]int64, len(p.Limits))
	for k, v := range p.Limits {
		limits[k] = v
	}
	overagePrices := make(map[string]int64, len(p.OveragePrices))
	for k, v := range p.OveragePrices {
		overagePrices[k] = v
	}

	return &entitlement.Entitlement{
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		PlanID:         p.ID,
		PlanName:       p.Name,
		Status:         sub.SubscriptionStatus,
		Source:         source,
		Features:       append([]string{}, p.Features...),
		AllFeatures:    p.AllFeatures,
		Limits:         limits,
		OveragePrices:  overagePrices,
		PeriodStart:    sub.CurrentPeriodStart,
		PeriodEnd:      sub.CurrentPeriodEnd,
	}
}
