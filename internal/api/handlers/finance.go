package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/funnel-finance-go/internal/export"
	"github.com/irfndi/funnel-finance-go/internal/finance"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/middleware"
	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/irfndi/funnel-finance-go/internal/telemetry"
	"github.com/irfndi/funnel-finance-go/internal/utils"
)

const defaultPurpose = "api"

// FinanceService defines the time-aware operations served over HTTP.
type FinanceService interface {
	GetTimeAwareFinancials(ctx context.Context, projectID string, r models.DateRange, funnelID *string) (*models.TimeAwareResult, error)
	GetTimeAwareSummary(ctx context.Context, projectID string, r models.DateRange, funnelID *string) (*models.FinancialSummary, error)
	GetAISafeFinancials(ctx context.Context, projectID string, r models.DateRange, funnelID *string, purpose string) (*models.AISafeResult, error)
	Classification(ctx context.Context, projectID string, r models.DateRange) (models.Classification, error)
	GetRevenueTrend(ctx context.Context, projectID string, r models.DateRange, funnelID *string, period int) ([]models.TrendPoint, error)
}

type FinanceHandler struct {
	svc         FinanceService
	trendPeriod int
	logger      *logging.StandardLogger
	tracer      *telemetry.BusinessTracer
}

func NewFinanceHandler(svc FinanceService, trendPeriod int, logger *logging.StandardLogger) *FinanceHandler {
	return &FinanceHandler{
		svc:         svc,
		trendPeriod: trendPeriod,
		logger:      logger,
		tracer:      telemetry.NewBusinessTracer(),
	}
}

// TrendResponse wraps a revenue trend.
type TrendResponse struct {
	ProjectID string              `json:"project_id"`
	Period    int                 `json:"period"`
	Points    []models.TrendPoint `json:"points"`
}

// GetFinancials handles GET /projects/:project_id/financials.
func (h *FinanceHandler) GetFinancials(c *gin.Context) {
	r, funnelID, err := parseRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.svc.GetTimeAwareFinancials(c.Request.Context(), c.Param("project_id"), r, funnelID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	middleware.AddSpanAttribute(c, "finance.mode", string(res.Mode))
	middleware.AddSpanAttribute(c, "finance.trust_level", string(res.TrustLevel))
	c.JSON(http.StatusOK, res)
}

// GetSummary handles GET /projects/:project_id/financials/summary.
func (h *FinanceHandler) GetSummary(c *gin.Context) {
	r, funnelID, err := parseRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	sum, err := h.svc.GetTimeAwareSummary(c.Request.Context(), c.Param("project_id"), r, funnelID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GetAISafe handles GET /projects/:project_id/financials/ai-safe.
func (h *FinanceHandler) GetAISafe(c *gin.Context) {
	r, funnelID, err := parseRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	purpose := strings.TrimSpace(c.Query("purpose"))
	if purpose == "" {
		purpose = defaultPurpose
	}

	res, err := h.svc.GetAISafeFinancials(c.Request.Context(), c.Param("project_id"), r, funnelID, purpose)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	middleware.AddSpanAttribute(c, "finance.ai_safe_records", len(res.Data))
	c.JSON(http.StatusOK, res)
}

// GetTrust handles GET /projects/:project_id/financials/trust.
func (h *FinanceHandler) GetTrust(c *gin.Context) {
	r, _, err := parseRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	cls, err := h.svc.Classification(c.Request.Context(), c.Param("project_id"), r)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cls)
}

// GetTrend handles GET /projects/:project_id/financials/trend.
func (h *FinanceHandler) GetTrend(c *gin.Context) {
	r, funnelID, err := parseRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	period, err := utils.ParsePositiveInt("period", c.Query("period"), h.trendPeriod)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	projectID := c.Param("project_id")
	points, err := h.svc.GetRevenueTrend(c.Request.Context(), projectID, r, funnelID, period)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if points == nil {
		points = []models.TrendPoint{}
	}
	c.JSON(http.StatusOK, TrendResponse{ProjectID: projectID, Period: period, Points: points})
}

// Export handles GET /projects/:project_id/financials/export and returns an
// XLSX workbook.
func (h *FinanceHandler) Export(c *gin.Context) {
	r, funnelID, err := parseRange(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	projectID := c.Param("project_id")
	ctx, span := h.tracer.TraceExport(c.Request.Context(), projectID, "xlsx")
	res, err := h.svc.GetTimeAwareFinancials(ctx, projectID, r, funnelID)
	if err != nil {
		telemetry.FinishSpan(span, err)
		respondError(c, h.logger, err)
		return
	}

	sum := finance.Summarize(res)
	var buf bytes.Buffer
	err = export.WriteTimeAwareWorkbook(&buf, res, &sum)
	telemetry.FinishSpan(span, err)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("financials_%s_%s_%s.xlsx", projectID, r.Start, r.End)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// parseRange reads start_date, end_date and funnel_id. An end before start
// reaches the service, which answers with an empty result.
func parseRange(c *gin.Context) (models.DateRange, *string, error) {
	start, end, err := utils.ParseDateRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return models.DateRange{}, nil, err
	}
	return models.DateRange{Start: start, End: end}, utils.OptionalString(c.Query("funnel_id")), nil
}
