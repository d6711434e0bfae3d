package handlers

import (
	"context"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/irfndi/funnel-finance-go/internal/finance"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/middleware"
	"github.com/irfndi/funnel-finance-go/internal/telemetry"
	"github.com/irfndi/funnel-finance-go/internal/utils"
)

// EpochManager reads and moves a project's financial core start date.
type EpochManager interface {
	GetEpoch(ctx context.Context, projectID string) (finance.Epoch, error)
	SetEpoch(ctx context.Context, projectID string, start civil.Date, allowBackward bool) (finance.Epoch, error)
}

type EpochHandler struct {
	epochs EpochManager
	logger *logging.StandardLogger
	tracer *telemetry.BusinessTracer
}

type UpdateEpochRequest struct {
	FinancialCoreStartDate string `json:"financial_core_start_date" binding:"required"`
	AllowBackward          bool   `json:"allow_backward"`
}

func NewEpochHandler(epochs EpochManager, logger *logging.StandardLogger) *EpochHandler {
	return &EpochHandler{
		epochs: epochs,
		logger: logger,
		tracer: telemetry.NewBusinessTracer(),
	}
}

// GetEpoch handles GET /projects/:project_id/epoch.
func (h *EpochHandler) GetEpoch(c *gin.Context) {
	epoch, err := h.epochs.GetEpoch(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, epoch)
}

// UpdateEpoch handles PUT /projects/:project_id/epoch.
func (h *EpochHandler) UpdateEpoch(c *gin.Context) {
	var req UpdateEpochRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	start, err := utils.ParseDate("financial_core_start_date", req.FinancialCoreStartDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	projectID := c.Param("project_id")
	ctx, span := h.tracer.TraceEpochUpdate(c.Request.Context(), projectID, start.String(), req.AllowBackward)
	epoch, err := h.epochs.SetEpoch(ctx, projectID, start, req.AllowBackward)
	telemetry.FinishSpan(span, err)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithUserID(middleware.UserID(c)).Info("Financial core start date updated",
		"project_id", projectID,
		"financial_core_start_date", epoch.Start.String(),
		"allow_backward", req.AllowBackward,
	)
	c.JSON(http.StatusOK, epoch)
}
