package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

func TestSubscriptionListQueryHonorsTenantIDs(t *testing.T) {
	r := &subscriptionRepository{}

	filter := types.NewSubscriptionFilter()
	filter.TenantIDs = []string{"tenant_a", "tenant_b"}

	query, args := r.buildListQuery(context.Background(), filter, false)

	assert.Contains(t, query, "tenant_id IN ($2, $3)")
	assert.Contains(t, args, "tenant_a")
	assert.Contains(t, args, "tenant_b")
}

func TestSubscriptionListQueryCombinesContextAndFilterTenants(t *testing.T) {
	r := &subscriptionRepository{}
	ctx := context.WithValue(context.Background(), types.CtxTenantID, "tenant_ctx")

	filter := types.NewSubscriptionFilter()
	filter.TenantIDs = []string{"tenant_a"}

	query, args := r.buildListQuery(ctx, filter, false)

	assert.Contains(t, query, "tenant_id = $2")
	assert.Contains(t, query, "tenant_id IN ($3)")
	assert.Contains(t, args, "tenant_ctx")
	assert.Contains(t, args, "tenant_a")
}

func TestUsageListQueryFiltersByPeriodOverlap(t *testing.T) {
	r := &usageRepository{}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	filter := types.NewUsageFilter()
	filter.PeriodStart = &start
	filter.PeriodEnd = &end

	query, args := r.buildListQuery(context.Background(), filter, false)

	assert.Contains(t, query, "period_end >")
	assert.Contains(t, query, "period_start <")
	assert.Contains(t, args, start)
	assert.Contains(t, args, end)
}
