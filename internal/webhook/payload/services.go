package payload

import (
	"github.com/vendorgraph/vendorgraph/internal/domain/plan"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
)

// Services container for the dependencies needed by payload builders
type Services struct {
	SubscriptionRepo subscription.Repository
	Catalog          *plan.Catalog
}

// NewServices creates a new Services container
func NewServices(
	subscriptionRepo subscription.Repository,
	catalog *plan.Catalog,
) *Services {
	return &Services{
		SubscriptionRepo: subscriptionRepo,
		Catalog:          catalog,
	}
}
