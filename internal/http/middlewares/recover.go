package middlewares

import (
	"fmt"
	"net/http"

	httperrors "github.com/wenpaihq/wenpai/internal/http/errors"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
)

// WithRecover converts handler panics into 500 responses instead of
// tearing down the connection.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("handler panicked",
						logger.Path(r.URL.Path),
						logger.String("panic", fmt.Sprint(rec)),
					)
					httperrors.WriteError(w, httperrors.ErrInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
