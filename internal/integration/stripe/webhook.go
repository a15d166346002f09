package stripe

import (
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
)

// ParseWebhookEvent parses a Stripe webhook event with signature verification
func (c *Client) ParseWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	options := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.WebhookSecret(), options)
	if err != nil {
		c.logger.Errorw("Stripe webhook verification failed", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrSignatureInvalid)
	}
	return &event, nil
}
