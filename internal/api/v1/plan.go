package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/vendorgraph/vendorgraph/internal/errors"
	"github.com/vendorgraph/vendorgraph/internal/logger"
	"github.com/vendorgraph/vendorgraph/internal/service"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

type PlanHandler struct {
	service service.PlanService
	log     *logger.Logger
}

func NewPlanHandler(service service.PlanService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{service: service, log: log}
}

func (h *PlanHandler) GetPlans(c *gin.Context) {
	ctx := c.Request.Context()
	var filter types.PlanFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.log.Error("Failed to bind query", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	response, err := h.service.GetPlans(ctx, &filter)
	if err != nil {
		h.log.Error("Failed to get plans", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *PlanHandler) GetPlan(c *gin.Context) {
	ctx := c.Request.Context()
	plan, err := h.service.GetPlan(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to get plan", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *PlanHandler) GetPlanByLookupKey(c *gin.Context) {
	ctx := c.Request.Context()
	plan, err := h.service.GetPlanByLookupKey(ctx, c.Param("key"))
	if err != nil {
		h.log.Error("Failed to get plan by lookup key", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
