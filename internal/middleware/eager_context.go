package middleware

import (
	"net/http"

	"graphql-eager/internal/eager"
)

// EagerOptionsMiddleware attaches the eager walk options to every request.
func EagerOptionsMiddleware(opts eager.Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(eager.WithOptions(r.Context(), opts)))
		})
	}
}
