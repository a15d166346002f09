package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/service"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

func NewSubscriptionHandler(service service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, log: log}
}

func (h *SubscriptionHandler) GetCurrentSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	response, err := h.service.GetCurrentSubscription(ctx)
	if err != nil {
		h.log.Error("Failed to get current subscription", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	response, err := h.service.GetSubscription(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to get subscription", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.SubscriptionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.log.Error("Failed to bind query", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.ListSubscriptions(ctx, &filter)
	if err != nil {
		h.log.Error("Failed to list subscriptions", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}
