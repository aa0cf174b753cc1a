package middleware

import (
	"log/slog"
	"net/http"

	"graphql-eager/internal/gqlrequest"
	"graphql-eager/internal/logging"
)

// GraphQLRequestAnalysisMiddleware decodes and analyzes the GraphQL request once
// and stores derived metadata in request context for downstream middleware.
func GraphQLRequestAnalysisMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			analysis := gqlrequest.AnalyzeRequest(r)
			ctx := gqlrequest.WithAnalysis(r.Context(), analysis)

			logger := logging.FromContext(ctx)
			if logFields := graphqlLogFields(ctx, analysis); len(logFields) > 0 {
				logger = logger.WithFields(logFields...)
				ctx = logging.WithLogger(ctx, logger)
			}
			if analysis.Trail != nil {
				logger.Debug("eager trail", slog.String("trail", analysis.Trail.String()))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// analysisFor returns the analysis stored by GraphQLRequestAnalysisMiddleware,
// analyzing the request itself when that middleware did not run.
func analysisFor(r *http.Request) *gqlrequest.Analysis {
	if analysis := gqlrequest.AnalysisFromContext(r.Context()); analysis != nil {
		return analysis
	}
	return gqlrequest.AnalyzeRequest(r)
}
