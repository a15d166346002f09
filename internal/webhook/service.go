package webhook

import (
	"context"

	"github.com/vendorgraph/vendorgraph/internal/config"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	pubsubRouter "github.com/vendorgraph/vendorgraph/internal/pubsub/router"
	"github.com/vendorgraph/vendorgraph/internal/webhook/handler"
	"github.com/vendorgraph/vendorgraph/internal/webhook/publisher"
)

// WebhookService orchestrates outbound webhook delivery
type WebhookService struct {
	config    *config.Configuration
	publisher publisher.WebhookPublisher
	handler   handler.Handler
	logger    *logger.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	cfg *config.Configuration,
	publisher publisher.WebhookPublisher,
	h handler.Handler,
	l *logger.Logger,
) *WebhookService {
	return &WebhookService{
		config:    cfg,
		publisher: publisher,
		handler:   h,
		logger:    l,
	}
}

// Start registers the delivery handler on the message router
func (s *WebhookService) Start(ctx context.Context, router *pubsubRouter.Router) error {
	if !s.config.Webhook.Enabled {
		s.logger.Info("webhook service disabled")
		return nil
	}

	s.handler.RegisterHandler(router)
	s.logger.Info("webhook service started")
	return nil
}

// Stop stops the webhook service
func (s *WebhookService) Stop() error {
	if err := s.publisher.Close(); err != nil {
		s.logger.Errorw("failed to close webhook publisher", "error", err)
		return err
	}

	s.logger.Info("webhook service stopped")
	return nil
}
