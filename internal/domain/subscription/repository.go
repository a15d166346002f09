package subscription

import (
	"context"

	"github.com/vendorgraph/vendorgraph/internal/types"
)

// Repository defines the interface for subscription persistence
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	// GetByProcessorSubscriptionID looks a subscription up by its billing
	// processor reference, across tenants. Used by the reconciler.
	GetByProcessorSubscriptionID(ctx context.Context, ref string) (*Subscription, error)
	// GetCurrentForTenant returns the tenant's newest non-canceled subscription
	GetCurrentForTenant(ctx context.Context, tenantID string) (*Subscription, error)
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)
	Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error)
	Update(ctx context.Context, sub *Subscription) error

	// UpdateFromEvent persists reconciler state conditionally: the write
	// lands only when the stored watermark is not newer than sub.LastEventAt
	// and the stored row is not canceled. Returns false when a newer or
	// terminal row won the race, without error, so concurrently delivered
	// webhooks cannot regress state between read and write.
	UpdateFromEvent(ctx context.Context, sub *Subscription) (bool, error)
}
