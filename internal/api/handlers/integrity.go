package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/funnel-finance-go/internal/integrity"
	"github.com/irfndi/funnel-finance-go/internal/logging"
)

// IntegrityReporter builds funnel and offer integrity reports.
type IntegrityReporter interface {
	BuildReport(ctx context.Context, projectID string) (*integrity.Report, error)
}

type IntegrityHandler struct {
	reports IntegrityReporter
	logger  *logging.StandardLogger
}

func NewIntegrityHandler(reports IntegrityReporter, logger *logging.StandardLogger) *IntegrityHandler {
	return &IntegrityHandler{reports: reports, logger: logger}
}

// GetReport handles GET /projects/:project_id/integrity.
func (h *IntegrityHandler) GetReport(c *gin.Context) {
	report, err := h.reports.BuildReport(c.Request.Context(), c.Param("project_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
