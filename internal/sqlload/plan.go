// Package sqlload turns SQL tables into eager loaders: one IN query per
// batch of keys, chunked to keep the IN list bounded.
package sqlload

import (
	"fmt"
	"strings"

	"graphql-eager/internal/eager"
	"graphql-eager/internal/sqlutil"

	sq "github.com/Masterminds/squirrel"
)

// DefaultMaxInClause bounds the number of keys bound into one IN list.
const DefaultMaxInClause = 1000

// Scanner is the part of dbexec.Rows a Table needs to read one row.
type Scanner interface {
	Scan(dest ...any) error
}

// Table maps rows of a SQL table to records of type M. Scan receives the
// columns in Columns order.
type Table[M any] struct {
	Name    string
	Columns []string
	// OrderBy lists order terms such as "id" or "name DESC".
	OrderBy []string
	Scan    func(Scanner) (M, error)
}

// SQLQuery is a planned statement with its bound arguments.
type SQLQuery struct {
	SQL  string
	Args []any
}

// Filter derives an extra WHERE condition from relation arguments. It
// returns nil when the arguments add no condition.
type Filter func(args eager.Args) (sq.Sqlizer, error)

// PlanIn builds SELECT columns FROM table WHERE column IN (values) with an
// optional extra condition.
func PlanIn[M any](table Table[M], column string, values []any, extra sq.Sqlizer) (SQLQuery, error) {
	if len(values) == 0 {
		return SQLQuery{}, nil
	}
	return planSelect(table, sq.And{sq.Eq{sqlutil.QuoteQualified(column): values}, extra})
}

// PlanSelect builds SELECT columns FROM table with an optional condition.
func PlanSelect[M any](table Table[M], where sq.Sqlizer) (SQLQuery, error) {
	return planSelect(table, sq.And{where})
}

func planSelect[M any](table Table[M], where sq.And) (SQLQuery, error) {
	if table.Name == "" || len(table.Columns) == 0 {
		return SQLQuery{}, fmt.Errorf("table mapping requires a name and columns")
	}
	builder := sq.Select(sqlutil.QuoteColumns(table.Columns)...).
		From(sqlutil.QuoteQualified(table.Name))
	for _, cond := range where {
		if cond != nil {
			builder = builder.Where(cond)
		}
	}
	if len(table.OrderBy) > 0 {
		builder = builder.OrderBy(orderTerms(table.OrderBy)...)
	}

	query, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{SQL: query, Args: args}, nil
}

func orderTerms(terms []string) []string {
	out := make([]string, len(terms))
	for i, term := range terms {
		fields := strings.Fields(term)
		if len(fields) == 0 {
			continue
		}
		quoted := sqlutil.QuoteQualified(fields[0])
		if len(fields) > 1 && strings.EqualFold(fields[1], "desc") {
			quoted += " DESC"
		}
		out[i] = quoted
	}
	return out
}

func chunkValues(values []any, max int) [][]any {
	if len(values) == 0 {
		return nil
	}
	if max <= 0 || len(values) <= max {
		return [][]any{values}
	}
	chunks := make([][]any, 0, (len(values)+max-1)/max)
	for start := 0; start < len(values); start += max {
		end := min(start+max, len(values))
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

// Contains filters column LIKE %value% when the string argument is set.
func Contains(column, arg string) Filter {
	return func(args eager.Args) (sq.Sqlizer, error) {
		raw, ok := args[arg]
		if !ok || raw == nil {
			return nil, nil
		}
		value, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("argument %s must be a string, got %T", arg, raw)
		}
		if value == "" {
			return nil, nil
		}
		return sq.Like{sqlutil.QuoteQualified(column): "%" + value + "%"}, nil
	}
}

// WhenTrue filters column = true when the boolean argument is true.
func WhenTrue(column, arg string) Filter {
	return func(args eager.Args) (sq.Sqlizer, error) {
		raw, ok := args[arg]
		if !ok || raw == nil {
			return nil, nil
		}
		value, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("argument %s must be a boolean, got %T", arg, raw)
		}
		if !value {
			return nil, nil
		}
		return sq.Eq{sqlutil.QuoteQualified(column): true}, nil
	}
}

// AllOf combines filters with AND, skipping those that add nothing.
func AllOf(filters ...Filter) Filter {
	return func(args eager.Args) (sq.Sqlizer, error) {
		var and sq.And
		for _, f := range filters {
			cond, err := f(args)
			if err != nil {
				return nil, err
			}
			if cond != nil {
				and = append(and, cond)
			}
		}
		switch len(and) {
		case 0:
			return nil, nil
		case 1:
			return and[0], nil
		default:
			return and, nil
		}
	}
}
