package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/service"
)

type CheckoutHandler struct {
	service service.CheckoutService
	log     *logger.Logger
}

func NewCheckoutHandler(service service.CheckoutService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, log: log}
}

func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.CreateCheckoutSession(ctx, &req)
	if err != nil {
		h.log.Error("Failed to create checkout session", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

func (h *CheckoutHandler) CreatePortalSession(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreatePortalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.CreatePortalSession(ctx, &req)
	if err != nil {
		h.log.Error("Failed to create portal session", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, response)
}
