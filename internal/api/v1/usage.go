package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendorgraph/vendorgraph/internal/api/dto"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/service"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type UsageHandler struct {
	service service.GateService
	log     *logger.Logger
}

func NewUsageHandler(service service.GateService, log *logger.Logger) *UsageHandler {
	return &UsageHandler{service: service, log: log}
}

// CheckGate answers whether the tenant may consume without recording anything
func (h *UsageHandler) CheckGate(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.GateCheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Error("Failed to bind query", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	result, err := h.service.Check(ctx, &req)
	if err != nil {
		h.log.Error("Failed to check gate", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConsumeUsage atomically checks the gate and records the consumption
func (h *UsageHandler) ConsumeUsage(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.ConsumeUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	result, err := h.service.Consume(ctx, &req)
	if err != nil {
		h.log.Error("Failed to consume usage", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecordUsage appends a ledger entry without gating
func (h *UsageHandler) RecordUsage(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.ConsumeUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	record, err := h.service.RecordUsage(ctx, &req)
	if err != nil {
		h.log.Error("Failed to record usage", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *UsageHandler) GetUsageSummary(c *gin.Context) {
	ctx := c.Request.Context()
	summary, err := h.service.GetUsage(ctx, c.Query("resource"))
	if err != nil {
		h.log.Error("Failed to get usage summary", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *UsageHandler) ListUsage(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.UsageFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.log.Error("Failed to bind query", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.ListUsage(ctx, &filter)
	if err != nil {
		h.log.Error("Failed to list usage", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}
