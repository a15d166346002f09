package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	stripeIntegration "github.com/vendorgraph/vendorgraph/internal/integration/stripe"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/service"
)

// WebhookHandler receives payment processor webhooks. Signature verification
// happens before any state is touched, an unverifiable payload is rejected
// with 400 and never reaches the reconciler.
type WebhookHandler struct {
	stripeClient *stripeIntegration.Client
	reconciler   service.ReconcilerService
	log          *logger.Logger
}

func NewWebhookHandler(stripeClient *stripeIntegration.Client, reconciler service.ReconcilerService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		stripeClient: stripeClient,
		reconciler:   reconciler,
		log:          log,
	}
}

func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Errorw("failed to read webhook body", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.log.Errorw("missing Stripe-Signature header")
		c.Error(ierr.NewError("missing signature header").
			WithHint("Stripe-Signature header is required").
			Mark(ierr.ErrSignatureInvalid))
		return
	}

	event, err := h.stripeClient.ParseWebhookEvent(body, signature)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.reconciler.ProcessEvent(c.Request.Context(), event); err != nil {
		h.log.Errorw("failed to process webhook event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
