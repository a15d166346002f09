package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vendorgraph/vendorgraph/internal/domain/usage"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// InMemoryUsageStore mirrors the postgres usage ledger semantics for tests,
// including the dedup-key no-op on duplicate inserts
type InMemoryUsageStore struct {
	mu      sync.RWMutex
	records map[string]*usage.UsageRecord
	dedup   map[string]bool
}

var _ usage.Repository = (*InMemoryUsageStore)(nil)

func NewInMemoryUsageStore() *InMemoryUsageStore {
	return &InMemoryUsageStore{
		records: make(map[string]*usage.UsageRecord),
		dedup:   make(map[string]bool),
	}
}

func dedupIndexKey(tenantID string, resource types.MeteredResource, dedupKey string) string {
	return fmt.Sprintf("%s|%s|%s", tenantID, resource, dedupKey)
}

func (s *InMemoryUsageStore) Record(ctx context.Context, rec *usage.UsageRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupIndexKey(rec.TenantID, rec.Resource, rec.DedupKey)
	if s.dedup[key] {
		// Duplicate dedup key, silently skipped like ON CONFLICT DO NOTHING
		return nil
	}
	s.dedup[key] = true

	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *InMemoryUsageStore) RecordWithinLimit(ctx context.Context, rec *usage.UsageRecord, limit int64, periodStart, periodEnd time.Time) (*usage.ConsumeOutcome, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := &usage.ConsumeOutcome{
		Total: s.totalLocked(rec.TenantID, rec.Resource, periodStart, periodEnd),
	}
	if limit != types.UnlimitedLimit && outcome.Total+rec.Quantity > limit {
		return outcome, nil
	}

	key := dedupIndexKey(rec.TenantID, rec.Resource, rec.DedupKey)
	if s.dedup[key] {
		outcome.Deduped = true
		return outcome, nil
	}
	s.dedup[key] = true

	cp := *rec
	s.records[rec.ID] = &cp
	outcome.Inserted = true
	outcome.Total += rec.Quantity
	return outcome, nil
}

func (s *InMemoryUsageStore) Total(ctx context.Context, tenantID string, resource types.MeteredResource, periodStart, periodEnd time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalLocked(tenantID, resource, periodStart, periodEnd), nil
}

func (s *InMemoryUsageStore) totalLocked(tenantID string, resource types.MeteredResource, periodStart, periodEnd time.Time) int64 {
	var total int64
	for _, rec := range s.records {
		if rec.TenantID != tenantID || rec.Resource != resource {
			continue
		}
		// Period overlap, the stamped billing period decides attribution
		if !rec.PeriodStart.Before(periodEnd) || !rec.PeriodEnd.After(periodStart) {
			continue
		}
		total += rec.Quantity
	}
	return total
}

func (s *InMemoryUsageStore) List(ctx context.Context, filter *types.UsageFilter) ([]*usage.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter == nil {
		filter = types.NewUsageFilter()
	}

	matched := s.match(ctx, filter)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RecordedAt.After(matched[j].RecordedAt)
	})

	if !filter.IsUnlimited() {
		offset := filter.GetOffset()
		if offset > len(matched) {
			offset = len(matched)
		}
		matched = matched[offset:]
		if limit := filter.GetLimit(); limit > 0 && limit < len(matched) {
			matched = matched[:limit]
		}
	}

	out := make([]*usage.UsageRecord, len(matched))
	for i, rec := range matched {
		cp := *rec
		out[i] = &cp
	}
	return out, nil
}

func (s *InMemoryUsageStore) Count(ctx context.Context, filter *types.UsageFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter == nil {
		filter = types.NewUsageFilter()
	}
	return len(s.match(ctx, filter)), nil
}

func (s *InMemoryUsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*usage.UsageRecord)
	s.dedup = make(map[string]bool)
}

func (s *InMemoryUsageStore) match(ctx context.Context, filter *types.UsageFilter) []*usage.UsageRecord {
	var matched []*usage.UsageRecord
	ctxTenant := types.GetTenantID(ctx)

	for _, rec := range s.records {
		if ctxTenant != "" && rec.TenantID != ctxTenant {
			continue
		}
		if filter.Resource != nil && rec.Resource != *filter.Resource {
			continue
		}
		if filter.PeriodStart != nil && !rec.PeriodEnd.After(*filter.PeriodStart) {
			continue
		}
		if filter.PeriodEnd != nil && !rec.PeriodStart.Before(*filter.PeriodEnd) {
			continue
		}
		matched = append(matched, rec)
	}
	return matched
}
