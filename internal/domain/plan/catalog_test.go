package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewDefaultLogger()
	require.NoError(t, err)
	return log
}

func testPlans() []*Plan {
	return []*Plan{
		{
			ID:       "free",
			Name:     "Free",
			Cadence:  types.PlanCadenceMonthly,
			Type:     types.PlanTypeMain,
			Currency: "usd",
			Features: []string{"directory"},
			Limits:   map[string]int64{"vendors": 5, "assessments": 2},
		},
		{
			ID:            "starter",
			LookupKey:     "starter",
			Name:          "Starter",
			Cadence:       types.PlanCadenceMonthly,
			Type:          types.PlanTypeMain,
			PriceAmount:   29900,
			Currency:      "usd",
			InheritsFrom:  "free",
			Features:      []string{"questionnaires"},
			Limits:        map[string]int64{"vendors": 25, "assessments": 10},
			OveragePrices: map[string]int64{"assessments": 2500},
			StripePriceID: "price_starter",
		},
		{
			ID:            "enterprise",
			Name:          "Enterprise",
			Cadence:       types.PlanCadenceAnnual,
			Type:          types.PlanTypeMain,
			PriceAmount:   2400000,
			Currency:      "usd",
			InheritsFrom:  "starter",
			AllFeatures:   true,
			Limits:        map[string]int64{"vendors": types.UnlimitedLimit, "assessments": types.UnlimitedLimit},
			StripePriceID: "price_enterprise",
		},
		{
			ID:          "pack",
			Name:        "Assessment Pack",
			Cadence:     types.PlanCadenceMonthly,
			Type:        types.PlanTypeAddon,
			PriceAmount: 19900,
			Currency:    "usd",
			Limits:      map[string]int64{"assessments": 25},
		},
	}
}

func TestCatalogInheritanceResolution(t *testing.T) {
	catalog, err := NewCatalogFromPlans(testPlans(), testLogger(t))
	require.NoError(t, err)

	starter, err := catalog.Get("starter")
	require.NoError(t, err)

	// Features accumulate down the chain, sorted
	assert.Equal(t, []string{"directory", "questionnaires"}, starter.Features)
	// Child limits win over the parent's
	assert.Equal(t, int64(25), starter.Limits["vendors"])
	assert.Equal(t, int64(10), starter.Limits["assessments"])
	assert.Equal(t, int64(2500), starter.OveragePrices["assessments"])
}

func TestCatalogUnlimitedDropsInheritedOverage(t *testing.T) {
	catalog, err := NewCatalogFromPlans(testPlans(), testLogger(t))
	require.NoError(t, err)

	enterprise, err := catalog.Get("enterprise")
	require.NoError(t, err)

	assert.Equal(t, types.UnlimitedLimit, enterprise.Limits["assessments"])
	_, hasOverage := enterprise.OveragePrices["assessments"]
	assert.False(t, hasOverage, "unlimited resources must not carry an overage price")
	assert.True(t, enterprise.AllFeatures)
}

func TestCatalogDuplicatePlanID(t *testing.T) {
	plans := testPlans()
	plans = append(plans, &Plan{
		ID:      "free",
		Name:    "Duplicate",
		Cadence: types.PlanCadenceMonthly,
		Type:    types.PlanTypeMain,
	})

	_, err := NewCatalogFromPlans(plans, testLogger(t))
	require.Error(t, err)
	assert.True(t, ierr.IsCatalogIntegrity(err))
}

func TestCatalogUnknownParent(t *testing.T) {
	plans := testPlans()
	plans[1].InheritsFrom = "missing"

	_, err := NewCatalogFromPlans(plans, testLogger(t))
	require.Error(t, err)
	assert.True(t, ierr.IsCatalogIntegrity(err))
}

func TestCatalogInheritanceCycle(t *testing.T) {
	plans := []*Plan{
		{ID: "a", Name: "A", Cadence: types.PlanCadenceMonthly, Type: types.PlanTypeMain, InheritsFrom: "b"},
		{ID: "b", Name: "B", Cadence: types.PlanCadenceMonthly, Type: types.PlanTypeMain, InheritsFrom: "a"},
	}

	_, err := NewCatalogFromPlans(plans, testLogger(t))
	require.Error(t, err)
	assert.True(t, ierr.IsCatalogIntegrity(err))
}

func TestCatalogZeroOveragePrice(t *testing.T) {
	plans := testPlans()
	plans[1].OveragePrices = map[string]int64{"assessments": 0}

	_, err := NewCatalogFromPlans(plans, testLogger(t))
	require.Error(t, err)
	assert.True(t, ierr.IsCatalogIntegrity(err))
}

func TestCatalogOverageOnExplicitUnlimited(t *testing.T) {
	plans := testPlans()
	plans[1].Limits = map[string]int64{"assessments": types.UnlimitedLimit}

	_, err := NewCatalogFromPlans(plans, testLogger(t))
	require.Error(t, err)
	assert.True(t, ierr.IsCatalogIntegrity(err))
}

func TestCatalogDuplicateLookupKey(t *testing.T) {
	plans := testPlans()
	plans[0].LookupKey = "starter"

	_, err := NewCatalogFromPlans(plans, testLogger(t))
	require.Error(t, err)
	assert.True(t, ierr.IsCatalogIntegrity(err))
}

func TestCatalogFallbackIsCheapestPublishedMain(t *testing.T) {
	catalog, err := NewCatalogFromPlans(testPlans(), testLogger(t))
	require.NoError(t, err)

	fallback := catalog.Fallback()
	require.NotNil(t, fallback)
	// Free is the cheapest main plan, the addon is never a fallback
	assert.Equal(t, "free", fallback.ID)
}

func TestCatalogFallbackSkipsArchived(t *testing.T) {
	plans := testPlans()
	plans[0].Status = types.StatusArchived

	catalog, err := NewCatalogFromPlans(plans, testLogger(t))
	require.NoError(t, err)

	fallback := catalog.Fallback()
	require.NotNil(t, fallback)
	assert.Equal(t, "starter", fallback.ID)
}

func TestCatalogLookups(t *testing.T) {
	catalog, err := NewCatalogFromPlans(testPlans(), testLogger(t))
	require.NoError(t, err)

	byKey, err := catalog.GetByLookupKey("starter")
	require.NoError(t, err)
	assert.Equal(t, "starter", byKey.ID)

	byPrice, err := catalog.GetByStripePriceID("price_enterprise")
	require.NoError(t, err)
	assert.Equal(t, "enterprise", byPrice.ID)

	_, err = catalog.Get("missing")
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestCatalogListFilter(t *testing.T) {
	catalog, err := NewCatalogFromPlans(testPlans(), testLogger(t))
	require.NoError(t, err)

	addonType := types.PlanTypeAddon
	addons := catalog.List(&types.PlanFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		Type:        &addonType,
	})
	require.Len(t, addons, 1)
	assert.Equal(t, "pack", addons[0].ID)
}

func TestPlanIsPurchasable(t *testing.T) {
	catalog, err := NewCatalogFromPlans(testPlans(), testLogger(t))
	require.NoError(t, err)

	free, err := catalog.Get("free")
	require.NoError(t, err)
	assert.False(t, free.IsPurchasable(), "zero-price plans cannot be purchased")

	starter, err := catalog.Get("starter")
	require.NoError(t, err)
	assert.True(t, starter.IsPurchasable())

	pack, err := catalog.Get("pack")
	require.NoError(t, err)
	assert.False(t, pack.IsPurchasable(), "plans without a processor price cannot be purchased")
}
