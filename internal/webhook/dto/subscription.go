package webhookDto

import (
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
)

type InternalSubscriptionEvent struct {
	EventType      string `json:"event_type"`
	SubscriptionID string `json:"subscription_id"`
	TenantID       string `json:"tenant_id"`
}

// SubscriptionWebhookPayload is the payload delivered for subscription events
type SubscriptionWebhookPayload struct {
	EventType    string                     `json:"event_type"`
	PlanName     string                     `json:"plan_name,omitempty"`
	Subscription *subscription.Subscription `json:"subscription"`
}

func NewSubscriptionWebhookPayload(sub *subscription.Subscription, planName, eventType string) *SubscriptionWebhookPayload {
	return &SubscriptionWebhookPayload{
		EventType:    eventType,
		PlanName:     planName,
		Subscription: sub,
	}
}
