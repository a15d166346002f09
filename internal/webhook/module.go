package webhook

import (
	"github.com/vendorgraph/vendorgraph/internal/domain/plan"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	"github.com/vendorgraph/vendorgraph/internal/pubsub/memory"
	"github.com/vendorgraph/vendorgraph/internal/webhook/handler"
	"github.com/vendorgraph/vendorgraph/internal/webhook/payload"
	"github.com/vendorgraph/vendorgraph/internal/webhook/publisher"
	"go.uber.org/fx"
)

// Module provides all webhook-related dependencies
var Module = fx.Options(
	fx.Provide(
		// PubSub for sending webhook events
		memory.NewPubSub,

		// Publisher for sending webhook events
		publisher.NewPublisher,

		// Handler for processing webhook events
		handler.NewHandler,

		// Payload builder factory and services
		providePayloadBuilderFactory,

		// Main webhook service
		NewWebhookService,
	),
)

func providePayloadBuilderFactory(
	subscriptionRepo subscription.Repository,
	catalog *plan.Catalog,
) payload.PayloadBuilderFactory {
	services := payload.NewServices(subscriptionRepo, catalog)
	return payload.NewPayloadBuilderFactory(services)
}
