package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	"github.com/vendorgraph/vendorgraph/internal/domain/proration"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// BillingService computes overage amounts and plan change previews. It is
// a pure calculator over the ledger and catalog, nothing is charged here.
type BillingService interface {
	OverageCharge(ctx context.Context, req *dto.OverageChargeRequest) (*dto.OverageChargeResponse, error)
	ProrationPreview(ctx context.Context, req *dto.ProrationPreviewRequest) (*dto.ProrationPreviewResponse, error)
}

type billingService struct {
	ServiceParams
	entitlements EntitlementService
}

func NewBillingService(params ServiceParams, entitlements EntitlementService) BillingService {
	return &billingService{
		ServiceParams: params,
		entitlements:  entitlements,
	}
}

func (s *billingService) OverageCharge(ctx context.Context, req *dto.OverageChargeRequest) (*dto.OverageChargeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenantID := types.GetTenantID(ctx)
	resource := types.MeteredResource(req.Resource)
	ent, err := s.entitlements.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	resp := &dto.OverageChargeResponse{
		Resource:    req.Resource,
		Limit:       ent.LimitFor(resource),
		Amount:      decimal.Zero,
		PeriodStart: ent.PeriodStart,
		PeriodEnd:   ent.PeriodEnd,
	}
	if p, err := s.Catalog.Get(ent.PlanID); err == nil {
		resp.Currency = p.Currency
	}

	used, err := s.UsageRepo.Total(ctx, tenantID, resource, ent.PeriodStart, ent.PeriodEnd)
	if err != nil {
		return nil, err
	}
	resp.Used = used

	// Unlimited resources can never be over their limit
	if ent.IsUnlimited(resource) {
		return resp, nil
	}

	overage := used - resp.Limit
	if overage <= 0 {
		return resp, nil
	}
	resp.OverageUnits = overage

	price, ok := ent.OveragePriceFor(resource)
	if !ok {
		// No configured price means the overage is absorbed, not billed
		return resp, nil
	}

	resp.UnitPrice = price
	resp.Amount = decimal.NewFromInt(overage).Mul(decimal.NewFromInt(price))
	resp.Billable = true
	return resp, nil
}

func (s *billingService) ProrationPreview(ctx context.Context, req *dto.ProrationPreviewRequest) (*dto.ProrationPreviewResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ent, err := s.entitlements.Resolve(ctx, types.GetTenantID(ctx))
	if err != nil {
		return nil, err
	}

	oldPlan, err := s.Catalog.Get(ent.PlanID)
	if err != nil {
		return nil, err
	}
	newPlan, err := s.Catalog.Get(req.NewPlanID)
	if err != nil {
		return nil, err
	}
	if newPlan.Status != types.StatusPublished {
		return nil, ierr.NewError("plan is not available").
			WithHint("Only published plans can be switched to").
			WithReportableDetails(map[string]any{
				"plan_id": req.NewPlanID,
			}).
			Mark(ierr.ErrNotPurchasable)
	}

	changeAt := time.Now().UTC()
	if req.ChangeAt != nil {
		changeAt = req.ChangeAt.UTC()
	}

	result, err := s.ProrationCalc.Calculate(ctx, proration.Params{
		OldPlanPrice: oldPlan.PriceAmount,
		NewPlanPrice: newPlan.PriceAmount,
		PeriodStart:  ent.PeriodStart,
		PeriodEnd:    ent.PeriodEnd,
		ChangeAt:     changeAt,
	})
	if err != nil {
		return nil, err
	}

	return &dto.ProrationPreviewResponse{
		OldPlanID:   oldPlan.ID,
		NewPlanID:   newPlan.ID,
		Coefficient: result.Coefficient,
		Credit:      result.Credit,
		Charge:      result.Charge,
		NetAmount:   result.NetAmount,
		Currency:    newPlan.Currency,
		ChangeAt:    changeAt,
		PeriodStart: ent.PeriodStart,
		PeriodEnd:   ent.PeriodEnd,
	}, nil
}
