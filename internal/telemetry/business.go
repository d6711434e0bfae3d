package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const businessTracerName = "github.com/irfndi/funnel-finance-go/internal/telemetry"

// BusinessTracer provides utilities for tracing financial operations that sit
// outside the read path, such as epoch changes, integrity checks and exports.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer uses the global tracer provider.
func NewBusinessTracer() *BusinessTracer {
	return NewBusinessTracerWithProvider(otel.GetTracerProvider())
}

func NewBusinessTracerWithProvider(tp trace.TracerProvider) *BusinessTracer {
	return &BusinessTracer{tracer: tp.Tracer(businessTracerName)}
}

// TraceEpochUpdate starts a span for a change of a project's financial core
// start date.
func (bt *BusinessTracer) TraceEpochUpdate(ctx context.Context, projectID, requested string, allowBackward bool) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "finance.epoch_update", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.String("epoch.requested", requested),
		attribute.Bool("epoch.allow_backward", allowBackward),
	))
}

// TraceIntegrityCheck starts a span for a funnel and offer integrity scan.
// An empty projectID scans every project.
func (bt *BusinessTracer) TraceIntegrityCheck(ctx context.Context, projectID string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "finance.integrity_check", trace.WithAttributes(
		attribute.String("project_id", projectID),
	))
}

// RecordIntegrityFindings attaches integrity counters to span.
func (bt *BusinessTracer) RecordIntegrityFindings(span trace.Span, findings IntegrityFindings) {
	span.SetAttributes(
		attribute.Int("integrity.funnels", findings.Funnels),
		attribute.Int("integrity.offers", findings.Offers),
		attribute.Int("integrity.issues", findings.Issues),
		attribute.Int("integrity.duplicate_groups", findings.DuplicateGroups),
		attribute.Bool("integrity.healthy", findings.Issues == 0 && findings.DuplicateGroups == 0),
	)
}

// TraceExport starts a span for a workbook export.
func (bt *BusinessTracer) TraceExport(ctx context.Context, projectID, format string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "finance.export", trace.WithAttributes(
		attribute.String("project_id", projectID),
		attribute.String("export.format", format),
	))
}

// TraceToolCall starts a span for an automation tool invocation.
func (bt *BusinessTracer) TraceToolCall(ctx context.Context, tool, projectID string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "mcp.tool_call", trace.WithAttributes(
		attribute.String("mcp.tool", tool),
		attribute.String("project_id", projectID),
	))
}

// FinishSpan records err on span, if any, and ends it.
func FinishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// IntegrityFindings summarizes an integrity scan for tracing.
type IntegrityFindings struct {
	Funnels         int
	Offers          int
	Issues          int
	DuplicateGroups int
}
