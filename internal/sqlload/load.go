package sqlload

import (
	"context"
	"fmt"

	"graphql-eager/internal/dbexec"
	"graphql-eager/internal/eager"
	"graphql-eager/internal/logging"
	"graphql-eager/internal/observability"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("graphql-eager/sqlload")

// Source is where loaders run their queries. An executor stored in the
// request context with dbexec.WithExecutor takes precedence over Executor.
type Source struct {
	Executor    dbexec.QueryExecutor
	MaxInClause int
}

func (s Source) executor(ctx context.Context) (dbexec.QueryExecutor, error) {
	exec := dbexec.ExecutorFromContext(ctx, s.Executor)
	if exec == nil {
		return nil, fmt.Errorf("sqlload: no query executor configured")
	}
	return exec, nil
}

func (s Source) maxInClause() int {
	if s.MaxInClause > 0 {
		return s.MaxInClause
	}
	return DefaultMaxInClause
}

// ByColumn returns a loader selecting the rows of table whose column matches
// one of the requested keys. Keys are chunked into IN lists of at most
// MaxInClause values; an optional filter adds conditions from the relation's
// arguments. An empty key list runs no query.
func ByColumn[K comparable, M any](src Source, table Table[M], column string, filter Filter) eager.LoadFunc[K, M] {
	return func(ctx context.Context, keys []K, args eager.Args) ([]M, error) {
		if len(keys) == 0 {
			return nil, nil
		}

		var extra sq.Sqlizer
		if filter != nil {
			cond, err := filter(args)
			if err != nil {
				return nil, fmt.Errorf("%s filter: %w", table.Name, err)
			}
			extra = cond
		}

		values := make([]any, len(keys))
		for i, key := range keys {
			values[i] = key
		}
		chunks := chunkValues(values, src.maxInClause())

		ctx, span := tracer.Start(ctx, "sqlload.query",
			trace.WithAttributes(
				attribute.String("db.sql.table", table.Name),
				attribute.String("sqlload.column", column),
				attribute.Int("sqlload.key_count", len(keys)),
				attribute.Int("sqlload.chunk_count", len(chunks)),
			),
		)
		defer span.End()

		metrics := observability.GraphQLMetricsFromContext(ctx)
		if metrics != nil {
			metrics.RecordSQLBatch(ctx, table.Name, len(keys), len(chunks))
		}

		exec, err := src.executor(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		var out []M
		for _, chunk := range chunks {
			planned, err := PlanIn(table, column, chunk, extra)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			out, err = queryInto(ctx, exec, table, planned, out)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
		}

		span.SetAttributes(attribute.Int("sqlload.row_count", len(out)))
		if metrics != nil {
			metrics.RecordSQLResultRows(ctx, table.Name, len(out))
		}
		logging.FromContext(ctx).Debug("sql batch loaded",
			"table", table.Name,
			"column", column,
			"keys", len(keys),
			"queries", len(chunks),
			"rows", len(out),
		)
		return out, nil
	}
}

// Select runs a single query against table, used for root batches.
func Select[M any](ctx context.Context, src Source, table Table[M], where sq.Sqlizer) ([]M, error) {
	ctx, span := tracer.Start(ctx, "sqlload.query",
		trace.WithAttributes(attribute.String("db.sql.table", table.Name)),
	)
	defer span.End()

	exec, err := src.executor(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	planned, err := PlanSelect(table, where)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	out, err := queryInto(ctx, exec, table, planned, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("sqlload.row_count", len(out)))
	if metrics := observability.GraphQLMetricsFromContext(ctx); metrics != nil {
		metrics.RecordSQLBatch(ctx, table.Name, 0, 1)
		metrics.RecordSQLResultRows(ctx, table.Name, len(out))
	}
	return out, nil
}

func queryInto[M any](ctx context.Context, exec dbexec.QueryExecutor, table Table[M], planned SQLQuery, out []M) ([]M, error) {
	rows, err := exec.QueryContext(ctx, planned.SQL, planned.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := table.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table.Name, err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table.Name, err)
	}
	return out, nil
}
