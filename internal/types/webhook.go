package types

import (
	"encoding/json"
	"time"
)

// WebhookEvent represents an outbound webhook event to be delivered
type WebhookEvent struct {
	ID            string          `json:"id"`
	EventName     string          `json:"event_name"`
	TenantID      string          `json:"tenant_id"`
	EnvironmentID string          `json:"environment_id"`
	UserID        string          `json:"user_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// subscription event names
const (
	WebhookEventSubscriptionCreated  = "subscription.created"
	WebhookEventSubscriptionUpdated  = "subscription.updated"
	WebhookEventSubscriptionCanceled = "subscription.canceled"
	WebhookEventSubscriptionPastDue  = "subscription.past_due"
)

// entitlement event names
const (
	WebhookEventEntitlementChanged = "entitlement.changed"
	WebhookEventUsageLimitReached  = "usage.limit_reached"
)
