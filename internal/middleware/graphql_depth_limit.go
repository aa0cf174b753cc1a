package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"graphql-eager/internal/logging"
)

// GraphQLDepthLimitMiddleware rejects operations nested deeper than maxDepth
// before they reach the executor. Every nesting level below the root can
// become one eager batch, so the limit also bounds the queries per request.
// A maxDepth of zero or less disables the check.
func GraphQLDepthLimitMiddleware(maxDepth int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxDepth <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			analysis := analysisFor(r)
			if analysis.SelectionDepth <= maxDepth {
				next.ServeHTTP(w, r)
				return
			}

			logging.FromContext(r.Context()).Warn("query depth limit exceeded",
				slog.Int("depth", analysis.SelectionDepth),
				slog.Int("max_depth", maxDepth),
			)
			writeGraphQLError(w, http.StatusBadRequest,
				fmt.Sprintf("query depth %d exceeds the maximum of %d", analysis.SelectionDepth, maxDepth))
		})
	}
}

func writeGraphQLError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{"message": message}},
	})
}
