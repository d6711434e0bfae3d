package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/irfndi/funnel-finance-go/internal/database"

// TracedDB wraps a DatabasePool with spans and debug timing logs.
type TracedDB struct {
	Pool   DatabasePool
	tracer trace.Tracer
}

// NewTracedDB wraps pool using the global tracer provider.
func NewTracedDB(pool DatabasePool) *TracedDB {
	return NewTracedDBWithTracer(pool, otel.Tracer(tracerName))
}

// NewTracedDBWithTracer wraps pool using tracer.
func NewTracedDBWithTracer(pool DatabasePool, tracer trace.Tracer) *TracedDB {
	return &TracedDB{Pool: pool, tracer: tracer}
}

func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.start(ctx, "db.query", sql)
	defer span.End()

	start := time.Now()
	rows, err := db.Pool.Query(ctx, sql, args...)
	db.finish(span, "query", sql, start, err)
	return rows, err
}

func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.start(ctx, "db.query_row", sql)
	defer span.End()

	start := time.Now()
	row := db.Pool.QueryRow(ctx, sql, args...)
	db.finish(span, "query_row", sql, start, nil)
	return row
}

func (db *TracedDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.start(ctx, "db.exec", sql)
	defer span.End()

	start := time.Now()
	tag, err := db.Pool.Exec(ctx, sql, args...)
	span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	db.finish(span, "exec", sql, start, err)
	return tag, err
}

func (db *TracedDB) start(ctx context.Context, name, sql string) (context.Context, trace.Span) {
	return db.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.statement", compactSQL(sql)),
		),
	)
}

func (db *TracedDB) finish(span trace.Span, op, sql string, start time.Time, err error) {
	duration := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	logrus.WithFields(logrus.Fields{
		"operation":   op,
		"statement":   compactSQL(sql),
		"duration_ms": duration.Milliseconds(),
		"failed":      err != nil,
	}).Debug("Database call")
}

func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
