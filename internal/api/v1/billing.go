package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/service"
)

type BillingHandler struct {
	service service.BillingService
	log     *logger.Logger
}

func NewBillingHandler(service service.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{service: service, log: log}
}

func (h *BillingHandler) GetOverageCharge(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.OverageChargeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Error("Failed to bind query", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.OverageCharge(ctx, &req)
	if err != nil {
		h.log.Error("Failed to compute overage charge", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *BillingHandler) PreviewProration(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.ProrationPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.ProrationPreview(ctx, &req)
	if err != nil {
		h.log.Error("Failed to preview proration", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}
