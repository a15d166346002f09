package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/testutil"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	params       ServiceParams
	entitlements EntitlementService
	gate         GateService
	service      BillingService
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.entitlements = NewEntitlementService(s.params)
	s.gate = NewGateService(s.params, s.entitlements)
	s.service = NewBillingService(s.params, s.entitlements)
}

func (s *BillingServiceSuite) subscribe(planID string) {
	sub := newTestSubscription(&s.BaseServiceTestSuite, planID, types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), sub))
}

func (s *BillingServiceSuite) recordUsage(resource string, quantity int64, dedupKey string) {
	_, err := s.gate.RecordUsage(s.GetContext(), &dto.ConsumeUsageRequest{
		Resource: resource,
		Quantity: quantity,
		DedupKey: dedupKey,
	})
	s.Require().NoError(err)
}

func (s *BillingServiceSuite) TestOverageChargeWithinLimit() {
	s.subscribe("starter")
	s.recordUsage("assessments", 5, "evt-1")

	resp, err := s.service.OverageCharge(s.GetContext(), &dto.OverageChargeRequest{Resource: "assessments"})
	s.NoError(err)

	s.Equal(int64(5), resp.Used)
	s.Equal(int64(10), resp.Limit)
	s.Equal(int64(0), resp.OverageUnits)
	s.False(resp.Billable)
	s.True(resp.Amount.IsZero())
	s.Equal("usd", resp.Currency)
}

func (s *BillingServiceSuite) TestOverageChargeBillable() {
	s.subscribe("starter")
	s.recordUsage("assessments", 14, "evt-1")

	resp, err := s.service.OverageCharge(s.GetContext(), &dto.OverageChargeRequest{Resource: "assessments"})
	s.NoError(err)

	s.Equal(int64(4), resp.OverageUnits)
	s.Equal(int64(2500), resp.UnitPrice)
	s.True(resp.Billable)
	s.True(resp.Amount.Equal(decimal.NewFromInt(10000)), "amount = %s", resp.Amount)
}

func (s *BillingServiceSuite) TestOverageChargeAbsorbedWithoutPrice() {
	s.subscribe("starter")
	// Starter prices assessment overage but not vendor overage
	s.recordUsage("vendors", 30, "evt-1")

	resp, err := s.service.OverageCharge(s.GetContext(), &dto.OverageChargeRequest{Resource: "vendors"})
	s.NoError(err)

	s.Equal(int64(5), resp.OverageUnits)
	s.False(resp.Billable)
	s.True(resp.Amount.IsZero())
}

func (s *BillingServiceSuite) TestOverageChargeUnlimited() {
	s.subscribe("enterprise")
	s.recordUsage("assessments", 100000, "evt-1")

	resp, err := s.service.OverageCharge(s.GetContext(), &dto.OverageChargeRequest{Resource: "assessments"})
	s.NoError(err)

	s.Equal(int64(0), resp.OverageUnits)
	s.False(resp.Billable)
	s.True(resp.Amount.IsZero())
}

func (s *BillingServiceSuite) TestProrationPreviewUpgrade() {
	s.subscribe("starter")

	ent, err := s.entitlements.Resolve(s.GetContext(), types.DefaultTenantID)
	s.Require().NoError(err)
	changeAt := ent.PeriodStart.Add(15 * 24 * time.Hour)

	resp, err := s.service.ProrationPreview(s.GetContext(), &dto.ProrationPreviewRequest{
		NewPlanID: "professional",
		ChangeAt:  &changeAt,
	})
	s.NoError(err)

	s.Equal("starter", resp.OldPlanID)
	s.Equal("professional", resp.NewPlanID)
	// Half the period remains
	s.True(resp.Coefficient.Equal(decimal.NewFromFloat(0.5)))
	s.True(resp.Credit.Equal(decimal.NewFromInt(14950)))
	s.True(resp.Charge.Equal(decimal.NewFromInt(49950)))
	s.True(resp.NetAmount.Equal(decimal.NewFromInt(35000)))
	s.Equal("usd", resp.Currency)
}

func (s *BillingServiceSuite) TestProrationPreviewDowngradeCredits() {
	s.subscribe("professional")

	ent, err := s.entitlements.Resolve(s.GetContext(), types.DefaultTenantID)
	s.Require().NoError(err)
	changeAt := ent.PeriodStart.Add(15 * 24 * time.Hour)

	resp, err := s.service.ProrationPreview(s.GetContext(), &dto.ProrationPreviewRequest{
		NewPlanID: "starter",
		ChangeAt:  &changeAt,
	})
	s.NoError(err)
	s.True(resp.NetAmount.IsNegative())
}

func (s *BillingServiceSuite) TestProrationPreviewUnknownPlan() {
	s.subscribe("starter")

	_, err := s.service.ProrationPreview(s.GetContext(), &dto.ProrationPreviewRequest{
		NewPlanID: "missing",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *BillingServiceSuite) TestProrationPreviewArchivedPlanRejected() {
	s.subscribe("starter")

	_, err := s.service.ProrationPreview(s.GetContext(), &dto.ProrationPreviewRequest{
		NewPlanID: "legacy",
	})
	s.Error(err)
	s.True(ierr.IsNotPurchasable(err))
}
