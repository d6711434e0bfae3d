package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// SettingsRepository persists per-project financial core settings.
type SettingsRepository struct {
	pool  DatabasePool
	table string
}

// NewSettingsRepository creates a repository over the given settings table.
func NewSettingsRepository(pool DatabasePool, table string) *SettingsRepository {
	return &SettingsRepository{pool: pool, table: quoteIdent(table)}
}

// Get returns the settings row for projectID or ErrNotFound.
func (r *SettingsRepository) Get(ctx context.Context, projectID string) (*models.EpochSettings, error) {
	query := fmt.Sprintf(`
		SELECT project_id, financial_core_start_date, created_at, updated_at
		FROM %s
		WHERE project_id = $1
	`, r.table)

	settings, err := scanSettings(r.pool.QueryRow(ctx, query, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get financial settings: %w", err)
	}
	return settings, nil
}

// Create inserts the settings row if absent. When another writer created it
// first, the existing row is returned unchanged.
func (r *SettingsRepository) Create(ctx context.Context, projectID string, start civil.Date) (*models.EpochSettings, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, financial_core_start_date, created_at, updated_at)
		VALUES ($1, $2::date, NOW(), NOW())
		ON CONFLICT (project_id) DO NOTHING
		RETURNING project_id, financial_core_start_date, created_at, updated_at
	`, r.table)

	settings, err := scanSettings(r.pool.QueryRow(ctx, query, projectID, start.String()))
	if err == nil {
		return settings, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return r.Get(ctx, projectID)
	}
	return nil, fmt.Errorf("failed to create financial settings: %w", err)
}

// Update moves the financial core start date of an existing row.
func (r *SettingsRepository) Update(ctx context.Context, projectID string, start civil.Date) (*models.EpochSettings, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET financial_core_start_date = $2::date, updated_at = NOW()
		WHERE project_id = $1
		RETURNING project_id, financial_core_start_date, created_at, updated_at
	`, r.table)

	settings, err := scanSettings(r.pool.QueryRow(ctx, query, projectID, start.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update financial settings: %w", err)
	}
	return settings, nil
}

func scanSettings(row pgx.Row) (*models.EpochSettings, error) {
	var (
		s         models.EpochSettings
		start     pgtype.Date
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&s.ProjectID, &start, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if !start.Valid {
		return nil, errors.New("financial_core_start_date is null")
	}
	s.FinancialCoreStartDate = civil.DateOf(start.Time)
	s.CreatedAt = createdAt
	s.UpdatedAt = updatedAt
	return &s, nil
}
