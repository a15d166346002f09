package service

import (
	"time"

	"github.com/vendorgraph/vendorgraph/internal/domain/plan"
	"github.com/vendorgraph/vendorgraph/internal/domain/proration"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	"github.com/vendorgraph/vendorgraph/internal/idempotency"
	stripeIntegration "github.com/vendorgraph/vendorgraph/internal/integration/stripe"
	"github.com/vendorgraph/vendorgraph/internal/testutil"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// newTestCatalogPlans returns a fresh copy every call, the catalog takes
// ownership of the slices it is given
func newTestCatalogPlans() []*plan.Plan {
	return []*plan.Plan{
		{
			ID:       "free",
			Name:     "Free",
			Cadence:  types.PlanCadenceMonthly,
			Type:     types.PlanTypeMain,
			Currency: "usd",
			Features: []string{"vendor_directory"},
			Limits: map[string]int64{
				"vendors":     5,
				"assessments": 2,
			},
		},
		{
			ID:              "starter",
			LookupKey:       "starter",
			Name:            "Starter",
			Cadence:         types.PlanCadenceMonthly,
			Type:            types.PlanTypeMain,
			PriceAmount:     29900,
			Currency:        "usd",
			InheritsFrom:    "free",
			Features:        []string{"questionnaires"},
			TrialPeriodDays: 14,
			Limits: map[string]int64{
				"vendors":     25,
				"assessments": 10,
			},
			OveragePrices: map[string]int64{
				"assessments": 2500,
			},
			StripePriceID: "price_starter_monthly",
		},
		{
			ID:           "professional",
			LookupKey:    "professional",
			Name:         "Professional",
			Cadence:      types.PlanCadenceMonthly,
			Type:         types.PlanTypeMain,
			PriceAmount:  99900,
			Currency:     "usd",
			InheritsFrom: "starter",
			Features:     []string{"soc2_reports"},
			Limits: map[string]int64{
				"vendors":     100,
				"assessments": 50,
			},
			OveragePrices: map[string]int64{
				"vendors": 5000,
			},
			StripePriceID: "price_professional_monthly",
		},
		{
			ID:           "enterprise",
			Name:         "Enterprise",
			Cadence:      types.PlanCadenceAnnual,
			Type:         types.PlanTypeMain,
			PriceAmount:  2400000,
			Currency:     "usd",
			InheritsFrom: "professional",
			AllFeatures:  true,
			Limits: map[string]int64{
				"vendors":     types.UnlimitedLimit,
				"assessments": types.UnlimitedLimit,
			},
			StripePriceID: "price_enterprise_annual",
		},
		{
			ID:          "assessments-pack",
			Name:        "Assessment Pack",
			Cadence:     types.PlanCadenceMonthly,
			Type:        types.PlanTypeAddon,
			PriceAmount: 19900,
			Currency:    "usd",
			Features:    []string{"priority_review"},
			Limits: map[string]int64{
				"assessments": 25,
			},
			OveragePrices: map[string]int64{
				"assessments": 2000,
			},
			StripePriceID: "price_assessments_pack",
		},
		{
			ID:            "legacy",
			Name:          "Legacy",
			Cadence:       types.PlanCadenceMonthly,
			Type:          types.PlanTypeMain,
			PriceAmount:   9900,
			Currency:      "usd",
			StripePriceID: "price_legacy_monthly",
			BaseModel:     types.BaseModel{Status: types.StatusArchived},
		},
	}
}

// newTestServiceParams assembles service dependencies on top of the suite's
// in-memory stores
func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	catalog, err := plan.NewCatalogFromPlans(newTestCatalogPlans(), s.GetLogger())
	s.Require().NoError(err)

	stores := s.GetStores()
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		Catalog:          catalog,
		SubRepo:          stores.SubscriptionRepo,
		UsageRepo:        stores.UsageRepo,
		Cache:            s.GetCache(),
		WebhookPublisher: s.GetWebhookPublisher(),
		ProrationCalc:    proration.NewCalculator(),
		StripeClient:     stripeIntegration.NewClient(s.GetConfig(), s.GetLogger()),
		IdempGen:         idempotency.NewGenerator(),
	}
}

// newTestSubscription builds an entitled subscription on the given plan with
// a billing period spanning 15 days either side of now
func newTestSubscription(s *testutil.BaseServiceTestSuite, planID string, status types.SubscriptionStatus) *subscription.Subscription {
	now := s.GetNow()
	return &subscription.Subscription{
		ID:                      types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:                  planID,
		SubscriptionStatus:      status,
		Cadence:                 types.PlanCadenceMonthly,
		CurrentPeriodStart:      now.Add(-15 * 24 * time.Hour),
		CurrentPeriodEnd:        now.Add(15 * 24 * time.Hour),
		ProcessorCustomerID:     "cus_test",
		ProcessorSubscriptionID: "sub_" + types.GenerateUUID(),
		LastEventAt:             now.Add(-15 * 24 * time.Hour),
		BaseModel:               types.GetDefaultBaseModel(s.GetContext()),
	}
}
