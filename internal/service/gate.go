package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	"github.com/vendorgraph/vendorgraph/internal/domain/entitlement"
	"github.com/vendorgraph/vendorgraph/internal/domain/usage"
	"github.com/vendorgraph/vendorgraph/internal/types"
	webhookDto "github.com/vendorgraph/vendorgraph/internal/webhook/dto"
)

// GateService answers "may this tenant consume N units of a resource"
// and records consumption atomically with the decision
type GateService interface {
	// Check evaluates a hypothetical consumption without recording anything
	Check(ctx context.Context, req *dto.GateCheckRequest) (*dto.GateResult, error)

	// Consume evaluates and, when allowed, records the consumption. The
	// headroom check and the ledger write run in one storage-level critical
	// section, and a denied request never writes a usage record.
	Consume(ctx context.Context, req *dto.ConsumeUsageRequest) (*dto.GateResult, error)

	// RecordUsage writes a usage record without gating. Duplicate dedup keys
	// are silently skipped.
	RecordUsage(ctx context.Context, req *dto.ConsumeUsageRequest) (*dto.UsageRecordResponse, error)

	GetUsage(ctx context.Context, resource string) (*dto.UsageSummaryResponse, error)
	ListUsage(ctx context.Context, filter *types.UsageFilter) (*dto.ListUsageResponse, error)
}

type gateService struct {
	ServiceParams
	entitlements EntitlementService

	// consumeLocks serializes Consume per (tenant, resource, period) inside
	// this process. A fast path only, the storage-level lock held by the
	// repository is what makes the check-then-record pair atomic across
	// processes.
	consumeLocks sync.Map
}

func NewGateService(params ServiceParams, entitlements EntitlementService) GateService {
	return &gateService{
		ServiceParams: params,
		entitlements:  entitlements,
	}
}

func (s *gateService) Check(ctx context.Context, req *dto.GateCheckRequest) (*dto.GateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ent, err := s.entitlements.Resolve(ctx, types.GetTenantID(ctx))
	if err != nil {
		return nil, err
	}

	return s.evaluate(ctx, ent, types.MeteredResource(req.Resource), req.Quantity)
}

func (s *gateService) Consume(ctx context.Context, req *dto.ConsumeUsageRequest) (*dto.GateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenantID := types.GetTenantID(ctx)
	resource := types.MeteredResource(req.Resource)
	ent, err := s.entitlements.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	lockKey := fmt.Sprintf("%s:%s:%d", tenantID, resource, ent.PeriodStart.Unix())
	mu, _ := s.consumeLocks.LoadOrStore(lockKey, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	unlimited := ent.IsUnlimited(resource)
	limit := types.UnlimitedLimit
	if !unlimited {
		limit = ent.LimitFor(resource)
	}

	record := s.newUsageRecord(ctx, ent, req)
	outcome, err := s.UsageRepo.RecordWithinLimit(ctx, record, limit, ent.PeriodStart, ent.PeriodEnd)
	if err != nil {
		return nil, err
	}

	// A deduped retry is allowed without effect, the outcome total is the
	// ledger truth either way
	result := &dto.GateResult{
		Allowed:   outcome.Inserted || outcome.Deduped,
		Resource:  resource.String(),
		Used:      outcome.Total,
		Limit:     limit,
		Unlimited: unlimited,
		PlanID:    ent.PlanID,
		PlanName:  ent.PlanName,
	}
	if !unlimited {
		result.Remaining = limit - result.Used
		if result.Remaining < 0 {
			result.Remaining = 0
		}
	}

	if !result.Allowed {
		if price, ok := ent.OveragePriceFor(resource); ok {
			result.OverageUnitPrice = &price
		}
		s.Logger.Infow("usage denied by gate",
			"tenant_id", tenantID,
			"resource", req.Resource,
			"requested", req.Quantity,
			"used", result.Used,
			"limit", result.Limit,
		)
		return result, nil
	}

	if outcome.Inserted && !unlimited && result.Used >= limit {
		s.publishLimitReached(ctx, ent, resource, result.Used)
	}
	return result, nil
}

func (s *gateService) RecordUsage(ctx context.Context, req *dto.ConsumeUsageRequest) (*dto.UsageRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ent, err := s.entitlements.Resolve(ctx, types.GetTenantID(ctx))
	if err != nil {
		return nil, err
	}

	record := s.newUsageRecord(ctx, ent, req)
	if err := s.UsageRepo.Record(ctx, record); err != nil {
		return nil, err
	}
	return dto.NewUsageRecordResponse(record), nil
}

func (s *gateService) GetUsage(ctx context.Context, resource string) (*dto.UsageSummaryResponse, error) {
	res := types.MeteredResource(resource)
	if err := res.Validate(); err != nil {
		return nil, err
	}

	tenantID := types.GetTenantID(ctx)
	ent, err := s.entitlements.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	used, err := s.UsageRepo.Total(ctx, tenantID, res, ent.PeriodStart, ent.PeriodEnd)
	if err != nil {
		return nil, err
	}

	limit := ent.LimitFor(res)
	summary := &dto.UsageSummaryResponse{
		Resource:    resource,
		Used:        used,
		Limit:       limit,
		Unlimited:   ent.IsUnlimited(res),
		PeriodStart: ent.PeriodStart,
		PeriodEnd:   ent.PeriodEnd,
	}
	if !summary.Unlimited {
		summary.Remaining = limit - used
		if summary.Remaining < 0 {
			summary.Remaining = 0
		}
	}
	return summary, nil
}

func (s *gateService) ListUsage(ctx context.Context, filter *types.UsageFilter) (*dto.ListUsageResponse, error) {
	if filter == nil {
		filter = types.NewUsageFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	records, err := s.UsageRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.UsageRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.UsageRecordResponse, len(records))
	for i, r := range records {
		items[i] = dto.NewUsageRecordResponse(r)
	}
	return &dto.ListUsageResponse{
		Items: items,
		Total: total,
	}, nil
}

// evaluate applies the gate rules against current period usage. Unlimited
// limits always allow; otherwise used+quantity must stay within the limit.
func (s *gateService) evaluate(ctx context.Context, ent *entitlement.Entitlement, resource types.MeteredResource, quantity int64) (*dto.GateResult, error) {
	result := &dto.GateResult{
		Resource: resource.String(),
		PlanID:   ent.PlanID,
		PlanName: ent.PlanName,
	}

	if ent.IsUnlimited(resource) {
		result.Allowed = true
		result.Unlimited = true
		result.Limit = types.UnlimitedLimit
		used, err := s.UsageRepo.Total(ctx, ent.TenantID, resource, ent.PeriodStart, ent.PeriodEnd)
		if err != nil {
			return nil, err
		}
		result.Used = used
		return result, nil
	}

	limit := ent.LimitFor(resource)
	used, err := s.UsageRepo.Total(ctx, ent.TenantID, resource, ent.PeriodStart, ent.PeriodEnd)
	if err != nil {
		return nil, err
	}

	result.Limit = limit
	result.Used = used
	result.Allowed = used+quantity <= limit
	result.Remaining = limit - used
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	if !result.Allowed {
		if price, ok := ent.OveragePriceFor(resource); ok {
			result.OverageUnitPrice = &price
		}
	}
	return result, nil
}

func (s *gateService) newUsageRecord(ctx context.Context, ent *entitlement.Entitlement, req *dto.ConsumeUsageRequest) *usage.UsageRecord {
	return &usage.UsageRecord{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USAGE_RECORD),
		Resource:    types.MeteredResource(req.Resource),
		Quantity:    req.Quantity,
		DedupKey:    req.DedupKey,
		RecordedAt:  time.Now().UTC(),
		PeriodStart: ent.PeriodStart,
		PeriodEnd:   ent.PeriodEnd,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

func (s *gateService) publishLimitReached(ctx context.Context, ent *entitlement.Entitlement, resource types.MeteredResource, used int64) {
	if s.WebhookPublisher == nil {
		return
	}

	payload, err := json.Marshal(&webhookDto.InternalUsageEvent{
		EventType: types.WebhookEventUsageLimitReached,
		TenantID:  ent.TenantID,
		Resource:  resource.String(),
		Used:      used,
		Limit:     ent.LimitFor(resource),
		PlanID:    ent.PlanID,
	})
	if err != nil {
		s.Logger.Errorw("failed to marshal usage event", "error", err)
		return
	}

	event := &types.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: types.WebhookEventUsageLimitReached,
		TenantID:  ent.TenantID,
		UserID:    types.GetUserID(ctx),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if err := s.WebhookPublisher.PublishWebhook(ctx, event); err != nil {
		s.Logger.Errorw("failed to publish usage webhook",
			"tenant_id", ent.TenantID,
			"resource", resource,
			"error", err,
		)
	}
}
