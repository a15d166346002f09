package service

import (
	"github.com/vendorgraph/vendorgraph/internal/cache"
	"github.com/vendorgraph/vendorgraph/internal/config"
	"github.com/vendorgraph/vendorgraph/internal/domain/plan"
	"github.com/vendorgraph/vendorgraph/internal/domain/proration"
	"github.com/vendorgraph/vendorgraph/internal/domain/subscription"
	"github.com/vendorgraph/vendorgraph/internal/domain/usage"
	"github.com/vendorgraph/vendorgraph/internal/idempotency"
	stripeClient "github.com/vendorgraph/vendorgraph/internal/integration/stripe"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/postgres"
	webhookPublisher "github.com/vendorgraph/vendorgraph/internal/webhook/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Catalog is the immutable plan registry loaded at startup
	Catalog *plan.Catalog

	// Repositories
	SubRepo   subscription.Repository
	UsageRepo usage.Repository

	// Infra
	Cache            cache.Cache
	WebhookPublisher webhookPublisher.WebhookPublisher
	ProrationCalc    proration.Calculator
	StripeClient     *stripeClient.Client
	IdempGen         *idempotency.Generator
}

// NewServiceParams assembles the common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	catalog *plan.Catalog,
	subRepo subscription.Repository,
	usageRepo usage.Repository,
	cache cache.Cache,
	publisher webhookPublisher.WebhookPublisher,
	stripeClient *stripeClient.Client,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		Catalog:          catalog,
		SubRepo:          subRepo,
		UsageRepo:        usageRepo,
		Cache:            cache,
		WebhookPublisher: publisher,
		ProrationCalc:    proration.NewCalculator(),
		StripeClient:     stripeClient,
		IdempGen:         idempotency.NewGenerator(),
	}
}
