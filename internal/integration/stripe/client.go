package stripe

import (
	"github.com/stripe/stripe-go/v82"
	"github.com/vendorgraph/vendorgraph/internal/config"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
)

// Client wraps the Stripe API client with application configuration
type Client struct {
	cfg    *config.Configuration
	logger *logger.Logger
}

// NewClient creates a new Stripe client wrapper
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
	}
}

// IsConfigured reports whether Stripe credentials are present
func (c *Client) IsConfigured() bool {
	return c.cfg.Stripe.SecretKey != ""
}

// API returns a configured Stripe API client
func (c *Client) API() (*stripe.Client, error) {
	if !c.IsConfigured() {
		return nil, ierr.NewError("stripe is not configured").
			WithHint("Billing processor credentials are missing").
			Mark(ierr.ErrGatewayUnavailable)
	}
	return stripe.NewClient(c.cfg.Stripe.SecretKey, nil), nil
}

// WebhookSecret returns the endpoint signing secret for webhook verification
func (c *Client) WebhookSecret() string {
	return c.cfg.Stripe.WebhookSecret
}
