package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// MaxPageSize is the most rows the record store returns for a single call.
const MaxPageSize = 1000

// FilterOp is a comparison supported by RangeQuery filters.
type FilterOp string

const (
	OpEq     FilterOp = "="
	OpGte    FilterOp = ">="
	OpLte    FilterOp = "<="
	OpIn     FilterOp = "IN"
	OpIsNull FilterOp = "IS NULL"
)

// Filter is a single column predicate.
type Filter struct {
	Column string
	Op     FilterOp
	Value  interface{}
}

func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func Gte(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpGte, Value: value}
}

func Lte(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpLte, Value: value}
}

// In matches any element of values, which must be a slice.
func In(column string, values interface{}) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

func IsNull(column string) Filter {
	return Filter{Column: column, Op: OpIsNull}
}

// RangeQuery describes a filtered, ordered read that is fetched page by page.
type RangeQuery struct {
	Source   string
	Columns  []string
	Filters  []Filter
	OrderBy  []string
	PageSize int
}

// Validate checks that the query can be paginated deterministically.
func (q RangeQuery) Validate() error {
	switch {
	case strings.TrimSpace(q.Source) == "":
		return fmt.Errorf("%w: source is required", ErrInvalidQuery)
	case len(q.Columns) == 0:
		return fmt.Errorf("%w: at least one column is required", ErrInvalidQuery)
	case len(q.OrderBy) == 0:
		return fmt.Errorf("%w: order by is required for stable pagination", ErrInvalidQuery)
	case q.PageSize < 1 || q.PageSize > MaxPageSize:
		return fmt.Errorf("%w: page size must be between 1 and %d, got %d", ErrInvalidQuery, MaxPageSize, q.PageSize)
	}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpGte, OpLte, OpIn, OpIsNull:
		default:
			return fmt.Errorf("%w: unsupported operator %q", ErrInvalidQuery, f.Op)
		}
	}
	return nil
}

// PageSQL renders the statement and arguments for the zero-based page.
func (q RangeQuery) PageSQL(page int) (string, []interface{}) {
	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		cols[i] = quoteIdent(c)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(q.Source))

	args := make([]interface{}, 0, len(q.Filters)+2)
	for i, f := range q.Filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		col := quoteIdent(f.Column)
		switch f.Op {
		case OpIsNull:
			b.WriteString(col + " IS NULL")
		case OpIn:
			args = append(args, f.Value)
			fmt.Fprintf(&b, "%s = ANY($%d)", col, len(args))
		default:
			args = append(args, f.Value)
			fmt.Fprintf(&b, "%s %s $%d", col, f.Op, len(args))
		}
	}

	order := make([]string, len(q.OrderBy))
	for i, c := range q.OrderBy {
		order[i] = quoteIdent(c)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(order, ", "))

	args = append(args, q.PageSize, page*q.PageSize)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return b.String(), args
}

// FetchAll reads every page of q in order and returns the concatenated rows.
// A page shorter than PageSize ends the read. Any failure yields a
// *FetchError and no rows.
func FetchAll[T any](ctx context.Context, db Querier, q RangeQuery, scan func(pgx.Rows) (T, error)) ([]T, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var out []T
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, &FetchError{Source: q.Source, Page: page + 1, Err: err}
		}

		n, err := fetchPage(ctx, db, q, page, scan, &out)
		if err != nil {
			return nil, &FetchError{Source: q.Source, Page: page + 1, Err: err}
		}
		if n < q.PageSize {
			return out, nil
		}
	}
}

func fetchPage[T any](ctx context.Context, db Querier, q RangeQuery, page int, scan func(pgx.Rows) (T, error), out *[]T) (int, error) {
	sql, args := q.PageSQL(page)
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return n, fmt.Errorf("scan row %d: %w", n+1, err)
		}
		*out = append(*out, item)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	return n, nil
}

func quoteIdent(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
