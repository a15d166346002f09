package webhookDto

type InternalUsageEvent struct {
	EventType string `json:"event_type"`
	TenantID  string `json:"tenant_id"`
	Resource  string `json:"resource"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	PlanID    string `json:"plan_id"`
}

// UsageWebhookPayload is the payload delivered when a usage limit is reached
type UsageWebhookPayload struct {
	EventType string `json:"event_type"`
	TenantID  string `json:"tenant_id"`
	Resource  string `json:"resource"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	PlanID    string `json:"plan_id"`
}

func NewUsageWebhookPayload(event *InternalUsageEvent, eventType string) *UsageWebhookPayload {
	return &UsageWebhookPayload{
		EventType: eventType,
		TenantID:  event.TenantID,
		Resource:  event.Resource,
		Used:      event.Used,
		Limit:     event.Limit,
		PlanID:    event.PlanID,
	}
}
