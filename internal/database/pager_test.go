package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRangeQuery(pageSize int) RangeQuery {
	return RangeQuery{
		Source:   "financial_core_daily",
		Columns:  []string{"id"},
		Filters:  []Filter{Eq("project_id", "proj-1"), IsNull("funnel_id")},
		OrderBy:  []string{"economic_day", "id"},
		PageSize: pageSize,
	}
}

func scanID(rows pgx.Rows) (int64, error) {
	var id int64
	err := rows.Scan(&id)
	return id, err
}

func idRows(from, to int) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id"})
	for i := from; i < to; i++ {
		rows.AddRow(int64(i))
	}
	return rows
}

func TestRangeQuery_PageSQL(t *testing.T) {
	q := RangeQuery{
		Source:  "financial_core_daily",
		Columns: []string{"project_id", "economic_day"},
		Filters: []Filter{
			Eq("project_id", "proj-1"),
			IsNull("funnel_id"),
			Gte("economic_day", "2026-01-01"),
			Lte("economic_day", "2026-01-31"),
			In("origin", []string{"import", "manual"}),
		},
		OrderBy:  []string{"economic_day", "funnel_id"},
		PageSize: 1000,
	}

	sql, args := q.PageSQL(2)

	assert.Equal(t,
		`SELECT "project_id", "economic_day" FROM "financial_core_daily"`+
			` WHERE "project_id" = $1 AND "funnel_id" IS NULL AND "economic_day" >= $2`+
			` AND "economic_day" <= $3 AND "origin" = ANY($4)`+
			` ORDER BY "economic_day", "funnel_id" LIMIT $5 OFFSET $6`,
		sql)
	assert.Equal(t, []interface{}{"proj-1", "2026-01-01", "2026-01-31", []string{"import", "manual"}, 1000, 2000}, args)
}

func TestRangeQuery_PageSQL_QuotesQualifiedNames(t *testing.T) {
	q := RangeQuery{
		Source:   "public.funnels",
		Columns:  []string{"id", `weird"name`},
		OrderBy:  []string{"id"},
		PageSize: 10,
	}

	sql, args := q.PageSQL(0)

	assert.Equal(t, `SELECT "id", "weird""name" FROM "public"."funnels" ORDER BY "id" LIMIT $1 OFFSET $2`, sql)
	assert.Equal(t, []interface{}{10, 0}, args)
}

func TestRangeQuery_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q *RangeQuery)
	}{
		{"missing source", func(q *RangeQuery) { q.Source = " " }},
		{"missing columns", func(q *RangeQuery) { q.Columns = nil }},
		{"missing order", func(q *RangeQuery) { q.OrderBy = nil }},
		{"page size zero", func(q *RangeQuery) { q.PageSize = 0 }},
		{"page size above store cap", func(q *RangeQuery) { q.PageSize = MaxPageSize + 1 }},
		{"unknown operator", func(q *RangeQuery) { q.Filters = append(q.Filters, Filter{Column: "x", Op: "LIKE"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := testRangeQuery(100)
			tt.mutate(&q)
			err := q.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}

	assert.NoError(t, testRangeQuery(MaxPageSize).Validate())
}

func TestFetchAll_ReadsEveryPage(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	// 2.5 pages of data
	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 1000, 0).
		WillReturnRows(idRows(0, 1000))
	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 1000, 1000).
		WillReturnRows(idRows(1000, 2000))
	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 1000, 2000).
		WillReturnRows(idRows(2000, 2500))

	ids, err := FetchAll(context.Background(), mockPool, testRangeQuery(1000), scanID)
	require.NoError(t, err)

	require.Len(t, ids, 2500)
	seen := make(map[int64]struct{}, len(ids))
	for i, id := range ids {
		assert.Equal(t, int64(i), id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 2500)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFetchAll_FullLastPageRequestsOneMore(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 2, 0).
		WillReturnRows(idRows(0, 2))
	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 2, 2).
		WillReturnRows(idRows(2, 4))
	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 2, 4).
		WillReturnRows(idRows(0, 0))

	ids, err := FetchAll(context.Background(), mockPool, testRangeQuery(2), scanID)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3}, ids)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFetchAll_EmptySource(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 1000, 0).
		WillReturnRows(idRows(0, 0))

	ids, err := FetchAll(context.Background(), mockPool, testRangeQuery(1000), scanID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFetchAll_PageFailureReturnsNoPartialData(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	dbErr := errors.New("connection reset by peer")

	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 1000, 0).
		WillReturnRows(idRows(0, 1000))
	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 1000, 1000).
		WillReturnError(dbErr)

	ids, err := FetchAll(context.Background(), mockPool, testRangeQuery(1000), scanID)
	require.Error(t, err)
	assert.Nil(t, ids)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "financial_core_daily", fetchErr.Source)
	assert.Equal(t, 2, fetchErr.Page)
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFetchAll_RowErrorMidPage(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	rowErr := errors.New("unexpected EOF")
	mockPool.ExpectQuery(`SELECT (.+) FROM "financial_core_daily"`).
		WithArgs("proj-1", 1000, 0).
		WillReturnRows(idRows(0, 10).RowError(5, rowErr))

	ids, err := FetchAll(context.Background(), mockPool, testRangeQuery(1000), scanID)
	require.Error(t, err)
	assert.Nil(t, ids)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 1, fetchErr.Page)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ids, err := FetchAll(ctx, mockPool, testRangeQuery(1000), scanID)
	assert.Nil(t, ids)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFetchAll_InvalidQuery(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	_, err = FetchAll(context.Background(), mockPool, testRangeQuery(0), scanID)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestFetchError_Message(t *testing.T) {
	err := &FetchError{Source: "financial_live_today", Page: 3, Err: errors.New("timeout")}
	assert.Equal(t, "fetch financial_live_today page 3: timeout", err.Error())
}
