package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/irfndi/funnel-finance-go/internal/telemetry"
	"github.com/irfndi/funnel-finance-go/internal/utils"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultPurpose = "mcp"

type aiSafeInput struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier"`
	StartDate string `json:"start_date" jsonschema:"first business day, YYYY-MM-DD"`
	EndDate   string `json:"end_date" jsonschema:"last business day, YYYY-MM-DD"`
	FunnelID  string `json:"funnel_id,omitempty" jsonschema:"funnel identifier; omit for project totals"`
	Purpose   string `json:"purpose,omitempty" jsonschema:"why the data is read; recorded in the access audit"`
}

type classifyInput struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier"`
	StartDate string `json:"start_date" jsonschema:"first business day, YYYY-MM-DD"`
	EndDate   string `json:"end_date" jsonschema:"last business day, YYYY-MM-DD"`
}

func registerTools(server *sdkmcp.Server, services Services, tracer *telemetry.BusinessTracer) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name: "get_ai_safe_financials",
		Description: "Reconciled daily financials for a project. Days before the financial core start date and today are never included; " +
			"date_range is null when nothing in the requested range is reconciled, including when end_date is before start_date. Every call is audited.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in aiSafeInput) (*sdkmcp.CallToolResult, any, error) {
		ctx, span := tracer.TraceToolCall(ctx, "get_ai_safe_financials", in.ProjectID)
		result, err := getAISafeFinancials(ctx, services.Finance, in)
		telemetry.FinishSpan(span, err)
		return toolResult(result, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "classify_trust",
		Description: "Explain how a date range splits into reconciled history and today's estimate, and whether its figures may drive automated decisions.",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in classifyInput) (*sdkmcp.CallToolResult, any, error) {
		ctx, span := tracer.TraceToolCall(ctx, "classify_trust", in.ProjectID)
		result, err := classifyTrust(ctx, services.Finance, in)
		telemetry.FinishSpan(span, err)
		return toolResult(result, err)
	})
}

func getAISafeFinancials(ctx context.Context, svc FinanceService, in aiSafeInput) (*models.AISafeResult, error) {
	if strings.TrimSpace(in.ProjectID) == "" {
		return nil, utils.NewFieldError("project_id", "is required")
	}
	start, end, err := utils.ParseDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		purpose = defaultPurpose
	}
	return svc.GetAISafeFinancials(ctx, in.ProjectID, models.DateRange{Start: start, End: end}, utils.OptionalString(in.FunnelID), purpose)
}

func classifyTrust(ctx context.Context, svc FinanceService, in classifyInput) (*models.Classification, error) {
	if strings.TrimSpace(in.ProjectID) == "" {
		return nil, utils.NewFieldError("project_id", "is required")
	}
	start, end, err := utils.ParseDateRange(in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	c, err := svc.Classification(ctx, in.ProjectID, models.DateRange{Start: start, End: end})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// toolResult renders v or the mapped error as JSON text content.
func toolResult(v any, err error) (*sdkmcp.CallToolResult, any, error) {
	if err != nil {
		payload, _ := json.Marshal(MapError(err))
		return &sdkmcp.CallToolResult{
			IsError: true,
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(payload)}},
		}, nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(payload)}},
	}, nil, nil
}
