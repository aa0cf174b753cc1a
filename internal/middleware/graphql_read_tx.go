package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"graphql-eager/internal/dbexec"
	"graphql-eager/internal/eager"
	"graphql-eager/internal/logging"
)

// ReadOnlyBeginner starts read-only transactions.
type ReadOnlyBeginner interface {
	BeginReadOnly(ctx context.Context) (*dbexec.TxExecutor, error)
}

// ReadSnapshotMiddleware runs each GraphQL query operation inside one
// read-only transaction, so every eager level reads the same snapshot.
// A transaction holds a single connection, so siblings resolve one after
// another inside it.
func ReadSnapshotMiddleware(beginner ReadOnlyBeginner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if beginner == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			analysis := analysisFor(r)
			if analysis.Operation == nil || analysis.OperationType != "query" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			logger := logging.FromContext(ctx)
			tx, err := beginner.BeginReadOnly(ctx)
			if err != nil {
				logger.Error("failed to start read transaction", slog.String("error", err.Error()))
				writeGraphQLError(w, http.StatusInternalServerError, "failed to start read transaction")
				return
			}

			defer func() {
				if rec := recover(); rec != nil {
					_ = tx.Rollback()
					panic(rec)
				}
				if err := tx.Commit(); err != nil {
					logger.Warn("failed to close read transaction", slog.String("error", err.Error()))
				}
			}()

			opts := eager.OptionsFromContext(ctx)
			opts.MaxConcurrency = 1
			ctx = eager.WithOptions(dbexec.WithExecutor(ctx, tx), opts)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
