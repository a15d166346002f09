package dto

import (
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
)

// SubscriptionResponse represents a subscription in API responses
type SubscriptionResponse struct {
	*subscription.Subscription
	PlanName string `json:"plan_name,omitempty"`
}

// NewSubscriptionResponse creates a subscription response
func NewSubscriptionResponse(sub *subscription.Subscription, planName string) *SubscriptionResponse {
	return &SubscriptionResponse{
		Subscription: sub,
		PlanName:     planName,
	}
}

// ListSubscriptionsResponse represents a paginated list of subscriptions
type ListSubscriptionsResponse struct {
	Items []*SubscriptionResponse `json:"items"`
	Total int                     `json:"total"`
}
