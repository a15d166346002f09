package payload

import (
	"context"
	"encoding/json"

	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	webhookDto "github.com/vendorgraph/vendorgraph/internal/webhook/dto"
)

type SubscriptionPayloadBuilder struct {
	services *Services
}

func NewSubscriptionPayloadBuilder(services *Services) PayloadBuilder {
	return SubscriptionPayloadBuilder{
		services: services,
	}
}

func (b SubscriptionPayloadBuilder) BuildPayload(ctx context.Context, eventType string, data json.RawMessage) (json.RawMessage, error) {
	var parsedPayload webhookDto.InternalSubscriptionEvent

	err := json.Unmarshal(data, &parsedPayload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to unmarshal subscription event payload").
			Mark(ierr.ErrInvalidOperation)
	}

	sub, err := b.services.SubscriptionRepo.Get(ctx, parsedPayload.SubscriptionID)
	if err != nil {
		return nil, err
	}

	// Plan name is best effort, the subscription may reference a plan that
	// was removed from the catalog
	planName := ""
	if p, err := b.services.Catalog.Get(sub.PlanID); err == nil {
		planName = p.Name
	}

	payload := webhookDto.NewSubscriptionWebhookPayload(sub, planName, eventType)

	return json.Marshal(payload)
}
