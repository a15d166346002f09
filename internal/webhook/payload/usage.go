package payload

import (
	"context"
	"encoding/json"

	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	webhookDto "github.com/vendorgraph/vendorgraph/internal/webhook/dto"
)

type UsagePayloadBuilder struct {
	services *Services
}

func NewUsagePayloadBuilder(services *Services) PayloadBuilder {
	return UsagePayloadBuilder{
		services: services,
	}
}

// BuildPayload passes the usage event through after validation. The gate
// already computed everything the receiver needs, no enrichment required.
func (b UsagePayloadBuilder) BuildPayload(ctx context.Context, eventType string, data json.RawMessage) (json.RawMessage, error) {
	var parsedPayload webhookDto.InternalUsageEvent

	err := json.Unmarshal(data, &parsedPayload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to unmarshal usage event payload").
			Mark(ierr.ErrInvalidOperation)
	}

	payload := webhookDto.NewUsageWebhookPayload(&parsedPayload, eventType)

	return json.Marshal(payload)
}
