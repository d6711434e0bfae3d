package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/irfndi/funnel-finance-go/internal/models"
)

// AuditRepository stores financial data access records.
type AuditRepository struct {
	pool  DatabasePool
	table string
}

func NewAuditRepository(pool DatabasePool, table string) *AuditRepository {
	return &AuditRepository{pool: pool, table: quoteIdent(table)}
}

// Record inserts one access record.
func (r *AuditRepository) Record(ctx context.Context, entry models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	var rangeStart, rangeEnd *string
	if entry.Range != nil {
		s, e := entry.Range.Start.String(), entry.Range.End.String()
		rangeStart, rangeEnd = &s, &e
	}

	var errText *string
	if entry.Error != "" {
		errText = &entry.Error
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, operation, purpose, source, range_start, range_end, success, record_count, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7::date, $8, $9, $10, NOW())
	`, r.table)

	_, err := r.pool.Exec(ctx, query,
		entry.ID.String(),
		entry.ProjectID,
		entry.Operation,
		entry.Purpose,
		string(entry.Source),
		rangeStart,
		rangeEnd,
		entry.Success,
		entry.RecordCount,
		errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record financial access: %w", err)
	}
	return nil
}
