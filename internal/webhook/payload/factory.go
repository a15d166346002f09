package payload

import (
	"fmt"

	"github.com/vendorgraph/vendorgraph/internal/types"
)

// PayloadBuilderFactory interface for getting event-specific payload builders
type PayloadBuilderFactory interface {
	GetBuilder(eventType string) (PayloadBuilder, error)
}

type payloadBuilderFactory struct {
	builders map[string]func() PayloadBuilder
	services *Services
}

// NewPayloadBuilderFactory creates a new factory with registered builders
func NewPayloadBuilderFactory(services *Services) PayloadBuilderFactory {
	f := &payloadBuilderFactory{
		builders: make(map[string]func() PayloadBuilder),
		services: services,
	}

	// Register subscription builders
	f.builders[types.WebhookEventSubscriptionCreated] = func() PayloadBuilder {
		return NewSubscriptionPayloadBuilder(f.services)
	}
	f.builders[types.WebhookEventSubscriptionUpdated] = func() PayloadBuilder {
		return NewSubscriptionPayloadBuilder(f.services)
	}
	f.builders[types.WebhookEventSubscriptionCanceled] = func() PayloadBuilder {
		return NewSubscriptionPayloadBuilder(f.services)
	}
	f.builders[types.WebhookEventSubscriptionPastDue] = func() PayloadBuilder {
		return NewSubscriptionPayloadBuilder(f.services)
	}

	// Register usage builders
	f.builders[types.WebhookEventEntitlementChanged] = func() PayloadBuilder {
		return NewSubscriptionPayloadBuilder(f.services)
	}
	f.builders[types.WebhookEventUsageLimitReached] = func() PayloadBuilder {
		return NewUsagePayloadBuilder(f.services)
	}

	return f
}

// GetBuilder returns a payload builder for the given event type
func (f *payloadBuilderFactory) GetBuilder(eventType string) (PayloadBuilder, error) {
	builderFn, ok := f.builders[eventType]
	if !ok {
		return nil, fmt.Errorf("no builder registered for event type: %s", eventType)
	}

	return builderFn(), nil
}
