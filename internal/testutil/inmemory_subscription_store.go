package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// InMemorySubscriptionStore mirrors the postgres subscription repository
// semantics for tests
type InMemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]*subscription.Subscription
}

var _ subscription.Repository = (*InMemorySubscriptionStore)(nil)

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subs: make(map[string]*subscription.Subscription),
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[sub.ID]; exists {
		return ierr.NewError("subscription already exists").
			WithHint("A subscription with this id already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	for _, existing := range s.subs {
		if sub.ProcessorSubscriptionID != "" && existing.ProcessorSubscriptionID == sub.ProcessorSubscriptionID {
			return ierr.NewError("subscription already exists").
				WithHint("A subscription with this processor reference already exists").
				Mark(ierr.ErrAlreadyExists)
		}
	}

	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok || sub.TenantID != types.GetTenantID(ctx) || sub.Status == types.StatusDeleted {
		return nil, ierr.NewError("subscription not found").
			WithHint("The subscription does not exist").
			Mark(ierr.ErrNotFound)
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemorySubscriptionStore) GetByProcessorSubscriptionID(ctx context.Context, ref string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.ProcessorSubscriptionID == ref && sub.Status != types.StatusDeleted {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithHint("No subscription matches the processor reference").
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) GetCurrentForTenant(ctx context.Context, tenantID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*subscription.Subscription
	for _, sub := range s.subs {
		if sub.TenantID != tenantID || sub.Status == types.StatusDeleted {
			continue
		}
		if sub.SubscriptionStatus == types.SubscriptionStatusCanceled {
			continue
		}
		candidates = append(candidates, sub)
	}
	if len(candidates) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHint("The tenant has no active subscription").
			Mark(ierr.ErrNotFound)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}

	matched := s.match(ctx, filter)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
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

	out := make([]*subscription.Subscription, len(matched))
	for i, sub := range matched {
		cp := *sub
		out[i] = &cp
	}
	return out, nil
}

func (s *InMemorySubscriptionStore) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	return len(s.match(ctx, filter)), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.subs[sub.ID]
	if !ok || existing.TenantID != sub.TenantID {
		return ierr.NewError("subscription not found").
			WithHint("The subscription does not exist").
			Mark(ierr.ErrNotFound)
	}
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *InMemorySubscriptionStore) UpdateFromEvent(ctx context.Context, sub *subscription.Subscription) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.subs[sub.ID]
	if !ok || existing.TenantID != sub.TenantID || existing.Status == types.StatusDeleted {
		return false, nil
	}
	// Same predicate the SQL path carries: never overwrite a newer watermark
	// and never touch a terminal row
	if existing.SubscriptionStatus == types.SubscriptionStatusCanceled {
		return false, nil
	}
	if existing.LastEventAt.After(sub.LastEventAt) {
		return false, nil
	}

	cp := *sub
	s.subs[sub.ID] = &cp
	return true, nil
}

func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[string]*subscription.Subscription)
}

func (s *InMemorySubscriptionStore) match(ctx context.Context, filter *types.SubscriptionFilter) []*subscription.Subscription {
	var matched []*subscription.Subscription
	ctxTenant := types.GetTenantID(ctx)

	for _, sub := range s.subs {
		if sub.Status == types.StatusDeleted {
			continue
		}
		if ctxTenant != "" && sub.TenantID != ctxTenant {
			continue
		}
		if len(filter.TenantIDs) > 0 && !lo.Contains(filter.TenantIDs, sub.TenantID) {
			continue
		}
		if len(filter.PlanIDs) > 0 && !lo.Contains(filter.PlanIDs, sub.PlanID) {
			continue
		}
		if len(filter.SubscriptionStatus) > 0 && !lo.Contains(filter.SubscriptionStatus, sub.SubscriptionStatus) {
			continue
		}
		matched = append(matched, sub)
	}
	return matched
}
