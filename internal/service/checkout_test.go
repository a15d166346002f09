package service

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/testutil"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type CheckoutServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service CheckoutService
}

func TestCheckoutService(t *testing.T) {
	suite.Run(t, new(CheckoutServiceSuite))
}

func (s *CheckoutServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewCheckoutService(s.params)
}

func (s *CheckoutServiceSuite) TestCheckoutRequiresPlanID() {
	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutRequest{})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CheckoutServiceSuite) TestCheckoutUnknownPlan() {
	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutRequest{
		PlanID: "missing",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *CheckoutServiceSuite) TestCheckoutFreePlanNotPurchasable() {
	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutRequest{
		PlanID: "free",
	})
	s.Error(err)
	s.True(ierr.IsNotPurchasable(err))
}

func (s *CheckoutServiceSuite) TestCheckoutArchivedPlanNotPurchasable() {
	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutRequest{
		PlanID: "legacy",
	})
	s.Error(err)
	s.True(ierr.IsNotPurchasable(err))
}

func (s *CheckoutServiceSuite) TestCheckoutWithoutProcessorCredentials() {
	// The default test config carries no processor credentials, the
	// gateway error surfaces only after the plan checks pass
	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutRequest{
		PlanID: "starter",
	})
	s.Error(err)
	s.True(ierr.IsGatewayUnavailable(err))
}

func (s *CheckoutServiceSuite) TestPortalWithoutSubscription() {
	_, err := s.service.CreatePortalSession(s.GetContext(), &dto.CreatePortalRequest{})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *CheckoutServiceSuite) TestPortalWithoutBillingAccount() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	sub.ProcessorCustomerID = ""
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	_, err := s.service.CreatePortalSession(s.GetContext(), &dto.CreatePortalRequest{})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *CheckoutServiceSuite) TestPortalWithoutProcessorCredentials() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	_, err := s.service.CreatePortalSession(s.GetContext(), &dto.CreatePortalRequest{})
	s.Error(err)
	s.True(ierr.IsGatewayUnavailable(err))
}
