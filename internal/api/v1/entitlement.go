package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/service"
)

type EntitlementHandler struct {
	service service.EntitlementService
	log     *logger.Logger
}

func NewEntitlementHandler(service service.EntitlementService, log *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{service: service, log: log}
}

func (h *EntitlementHandler) GetEntitlement(c *gin.Context) {
	ctx := c.Request.Context()
	response, err := h.service.GetEntitlement(ctx)
	if err != nil {
		h.log.Error("Failed to resolve entitlement", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *EntitlementHandler) CheckFeature(c *gin.Context) {
	ctx := c.Request.Context()
	response, err := h.service.CheckFeature(ctx, c.Param("feature"))
	if err != nil {
		h.log.Error("Failed to check feature", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}
