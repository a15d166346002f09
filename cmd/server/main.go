package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vendorgraph/vendorgraph/internal/api"
	v1 "github.com/vendorgraph/vendorgraph/internal/api/v1"
	"github.com/vendorgraph/vendorgraph/internal/cache"
	"github.com/vendorgraph/vendorgraph/internal/config"
	"github.com/vendorgraph/vendorgraph/internal/domain/plan"
	"github.com/vendorgraph/vendorgraph/internal/httpclient"
	stripeIntegration "github.com/vendorgraph/vendorgraph/internal/integration/stripe"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/postgres"
	pubsubRouter "github.com/vendorgraph/vendorgraph/internal/pubsub/router"
	"github.com/vendorgraph/vendorgraph/internal/repository"
	"github.com/vendorgraph/vendorgraph/internal/sentry"
	"github.com/vendorgraph/vendorgraph/internal/service"
	"github.com/vendorgraph/vendorgraph/internal/types"
	"github.com/vendorgraph/vendorgraph/internal/validator"
	"github.com/vendorgraph/vendorgraph/internal/webhook"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			cache.NewInMemoryCache,

			// Plan catalog, an invalid catalog aborts startup
			plan.NewCatalog,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Repositories
			repository.NewSubscriptionRepository,
			repository.NewUsageRepository,

			// Payment processor
			stripeIntegration.NewClient,

			// PubSub
			pubsubRouter.NewRouter,
		),
	)

	// Postgres
	opts = append(opts, postgres.Module())

	// Webhook module (must be initialised before services)
	opts = append(opts, webhook.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewPlanService,
			service.NewEntitlementService,
			service.NewGateService,
			service.NewBillingService,
			service.NewCheckoutService,
			service.NewSubscriptionService,
			service.NewReconcilerService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	planService service.PlanService,
	entitlementService service.EntitlementService,
	gateService service.GateService,
	billingService service.BillingService,
	checkoutService service.CheckoutService,
	subscriptionService service.SubscriptionService,
	reconcilerService service.ReconcilerService,
	stripeClient *stripeIntegration.Client,
) api.Handlers {
	return api.Handlers{
		Health:       v1.NewHealthHandler(),
		Plan:         v1.NewPlanHandler(planService, logger),
		Entitlement:  v1.NewEntitlementHandler(entitlementService, logger),
		Usage:        v1.NewUsageHandler(gateService, logger),
		Billing:      v1.NewBillingHandler(billingService, logger),
		Checkout:     v1.NewCheckoutHandler(checkoutService, logger),
		Subscription: v1.NewSubscriptionHandler(subscriptionService, logger),
		Webhook:      v1.NewWebhookHandler(stripeClient, reconcilerService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration) *gin.Engine {
	return api.NewRouter(handlers, cfg)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	webhookService *webhook.WebhookService,
	router *pubsubRouter.Router,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, webhookService, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	webhookService *webhook.WebhookService,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Register handlers before starting the router
			if err := webhookService.Start(ctx, router); err != nil {
				return err
			}

			log.Info("starting message router")
			go func() {
				if err := router.Run(); err != nil {
					log.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping message router")
			if err := webhookService.Stop(); err != nil {
				log.Errorw("failed to stop webhook service", "error", err)
			}
			return router.Close()
		},
	})
}
