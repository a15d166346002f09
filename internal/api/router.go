package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/vendorgraph/vendorgraph/internal/api/v1"
	"github.com/vendorgraph/vendorgraph/internal/config"
	"github.com/vendorgraph/vendorgraph/internal/rest/middleware"
)

type Handlers struct {
	Health       *v1.HealthHandler
	Plan         *v1.PlanHandler
	Entitlement  *v1.EntitlementHandler
	Usage        *v1.UsageHandler
	Billing      *v1.BillingHandler
	Checkout     *v1.CheckoutHandler
	Subscription *v1.SubscriptionHandler
	Webhook      *v1.WebhookHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.SentryMiddleware(cfg))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")

	// Processor webhooks authenticate by signature, not tenant header
	v1Group.POST("/webhooks/stripe", handlers.Webhook.HandleStripeWebhook)

	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	router.Use(middleware.TenantMiddleware)

	plans := router.Group("/plans")
	{
		plans.GET("", handlers.Plan.GetPlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
		plans.GET("/lookup/:key", handlers.Plan.GetPlanByLookupKey)
	}

	entitlements := router.Group("/entitlements")
	{
		entitlements.GET("", handlers.Entitlement.GetEntitlement)
		entitlements.GET("/features/:feature", handlers.Entitlement.CheckFeature)
	}

	gate := router.Group("/gate")
	{
		gate.GET("/check", handlers.Usage.CheckGate)
		gate.POST("/consume", handlers.Usage.ConsumeUsage)
	}

	usage := router.Group("/usage")
	{
		usage.POST("", handlers.Usage.RecordUsage)
		usage.GET("", handlers.Usage.ListUsage)
		usage.GET("/summary", handlers.Usage.GetUsageSummary)
	}

	billing := router.Group("/billing")
	{
		billing.GET("/overage", handlers.Billing.GetOverageCharge)
		billing.POST("/proration/preview", handlers.Billing.PreviewProration)
	}

	checkout := router.Group("/checkout")
	{
		checkout.POST("/sessions", handlers.Checkout.CreateCheckoutSession)
	}
	router.POST("/portal/sessions", handlers.Checkout.CreatePortalSession)

	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.GET("", handlers.Subscription.ListSubscriptions)
		subscriptions.GET("/current", handlers.Subscription.GetCurrentSubscription)
		subscriptions.GET("/:id", handlers.Subscription.GetSubscription)
	}
}
