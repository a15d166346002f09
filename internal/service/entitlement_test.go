package service

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vendorgraph/vendorgraph/internal/domain/entitlement"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/testutil"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type EntitlementServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service EntitlementService
}

func TestEntitlementService(t *testing.T) {
	suite.Run(t, new(EntitlementServiceSuite))
}

func (s *EntitlementServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewEntitlementService(s.params)
}

func (s *EntitlementServiceSuite) TestResolveFromSubscription() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	ent, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.NoError(err)

	s.Equal("starter", ent.PlanID)
	s.Equal(sub.ID, ent.SubscriptionID)
	s.Equal(entitlement.SourceSubscription, ent.Source)
	s.Equal(int64(10), ent.LimitFor("assessments"))
	s.Equal(int64(25), ent.LimitFor("vendors"))
	s.True(ent.HasFeature("questionnaires"))
	s.True(ent.HasFeature("vendor_directory"), "inherited features carry over")
	s.False(ent.HasFeature("soc2_reports"))
	s.Equal(sub.CurrentPeriodStart, ent.PeriodStart)
	s.Equal(sub.CurrentPeriodEnd, ent.PeriodEnd)
}

func (s *EntitlementServiceSuite) TestResolveNoSubscription() {
	_, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *EntitlementServiceSuite) TestResolveCanceledGrantsNothing() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusCanceled)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	_, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *EntitlementServiceSuite) TestResolvePastDueStillEntitled() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusPastDue)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	ent, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.NoError(err)
	s.Equal("starter", ent.PlanID)
	s.Equal(types.SubscriptionStatusPastDue, ent.Status)
}

func (s *EntitlementServiceSuite) TestResolveUnknownPlanFallsBack() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "legacy_gold", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	ent, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.NoError(err)

	// Fail closed onto the cheapest published main plan
	s.Equal("free", ent.PlanID)
	s.Equal(entitlement.SourceFallback, ent.Source)
	s.Equal(int64(5), ent.LimitFor("vendors"))
	s.Equal(sub.ID, ent.SubscriptionID)
}

func (s *EntitlementServiceSuite) TestResolveMergesAddon() {
	main := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), main))
	addon := newTestSubscription(&s.BaseServiceTestSuite, "assessments-pack", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), addon))

	ent, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.NoError(err)

	s.Equal("starter", ent.PlanID, "the main plan anchors the entitlement")
	s.Contains(ent.AddonPlanIDs, "assessments-pack")
	// The addon raises the assessment cap but never lowers anything
	s.Equal(int64(25), ent.LimitFor("assessments"))
	s.Equal(int64(25), ent.LimitFor("vendors"))
	s.True(ent.HasFeature("priority_review"))
	s.True(ent.HasFeature("questionnaires"))
	// The base plan's overage price wins, addon prices only fill gaps
	price, ok := ent.OveragePriceFor("assessments")
	s.True(ok)
	s.Equal(int64(2500), price)
}

func (s *EntitlementServiceSuite) TestResolveAddonNeverShrinksUnlimited() {
	main := newTestSubscription(&s.BaseServiceTestSuite, "enterprise", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), main))
	addon := newTestSubscription(&s.BaseServiceTestSuite, "assessments-pack", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), addon))

	ent, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.NoError(err)

	s.True(ent.IsUnlimited("assessments"))
	s.True(ent.AllFeatures)
}

func (s *EntitlementServiceSuite) TestResolveAddonDoesNotMutateCatalog() {
	main := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), main))
	addon := newTestSubscription(&s.BaseServiceTestSuite, "assessments-pack", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), addon))

	_, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.NoError(err)

	starter, err := s.params.Catalog.Get("starter")
	s.NoError(err)
	s.Equal(int64(10), starter.Limits["assessments"], "resolution must not write into the catalog")
	s.NotContains(starter.Features, "priority_review")
}

func (s *EntitlementServiceSuite) TestResolveCachesUntilInvalidated() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	ent, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.NoError(err)
	s.Equal("starter", ent.PlanID)

	sub.PlanID = "professional"
	s.NoError(s.params.SubRepo.Update(s.GetContext(), sub))

	cached, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.NoError(err)
	s.Equal("starter", cached.PlanID, "stale until invalidated")

	s.service.InvalidateCache(s.GetContext(), types.DefaultTenantID)

	fresh, err := s.service.Resolve(s.GetContext(), types.DefaultTenantID)
	s.NoError(err)
	s.Equal("professional", fresh.PlanID)
}

func (s *EntitlementServiceSuite) TestCheckFeature() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	resp, err := s.service.CheckFeature(s.GetContext(), "questionnaires")
	s.NoError(err)
	s.True(resp.Allowed)
	s.Equal("starter", resp.PlanID)

	denied, err := s.service.CheckFeature(s.GetContext(), "soc2_reports")
	s.NoError(err)
	s.False(denied.Allowed)
}

func (s *EntitlementServiceSuite) TestCheckFeatureAllFeatures() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "enterprise", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	resp, err := s.service.CheckFeature(s.GetContext(), "anything_at_all")
	s.NoError(err)
	s.True(resp.Allowed)
}

func (s *EntitlementServiceSuite) TestResolveRequiresTenant() {
	_, err := s.service.Resolve(s.GetContext(), "")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *EntitlementServiceSuite) TestResolveIsolatedPerTenant() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	otherCtx := testutil.SetupContextForTenant("tenant_other")
	_, err := s.service.Resolve(otherCtx, "tenant_other")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
