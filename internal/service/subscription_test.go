package service

import (
	"testing"

	"github.com/stretchr/testify/suite"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/testutil"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service SubscriptionService
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewSubscriptionService(s.params)
}

func (s *SubscriptionServiceSuite) TestGetSubscription() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	resp, err := s.service.GetSubscription(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(sub.ID, resp.ID)
	s.Equal("Starter", resp.PlanName)
}

func (s *SubscriptionServiceSuite) TestGetSubscriptionNotFound() {
	_, err := s.service.GetSubscription(s.GetContext(), "subs_missing")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestGetSubscriptionOtherTenant() {
	sub := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), sub))

	otherCtx := testutil.SetupContextForTenant("tenant_other")
	_, err := s.service.GetSubscription(otherCtx, sub.ID)
	s.Error(err)
	s.True(ierr.IsNotFound(err), "tenants never see each other's subscriptions")
}

func (s *SubscriptionServiceSuite) TestGetCurrentSubscription() {
	canceled := newTestSubscription(&s.BaseServiceTestSuite, "free", types.SubscriptionStatusCanceled)
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), canceled))
	active := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), active))

	resp, err := s.service.GetCurrentSubscription(s.GetContext())
	s.NoError(err)
	s.Equal(active.ID, resp.ID, "canceled subscriptions are never current")
}

func (s *SubscriptionServiceSuite) TestListSubscriptions() {
	one := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), one))
	two := newTestSubscription(&s.BaseServiceTestSuite, "assessments-pack", types.SubscriptionStatusActive)
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), two))

	resp, err := s.service.ListSubscriptions(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(2, resp.Total)
	s.Len(resp.Items, 2)
}

func (s *SubscriptionServiceSuite) TestListSubscriptionsByStatus() {
	active := newTestSubscription(&s.BaseServiceTestSuite, "starter", types.SubscriptionStatusActive)
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), active))
	canceled := newTestSubscription(&s.BaseServiceTestSuite, "free", types.SubscriptionStatusCanceled)
	s.Require().NoError(s.params.SubRepo.Create(s.GetContext(), canceled))

	resp, err := s.service.ListSubscriptions(s.GetContext(), &types.SubscriptionFilter{
		QueryFilter:        types.NewDefaultQueryFilter(),
		SubscriptionStatus: []types.SubscriptionStatus{types.SubscriptionStatusCanceled},
	})
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Equal(canceled.ID, resp.Items[0].ID)
}
