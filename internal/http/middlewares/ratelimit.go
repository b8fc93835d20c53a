package middlewares

import (
	"fmt"
	"net/http"

	httperrors "github.com/wenpaihq/wenpai/internal/http/errors"
	"github.com/wenpaihq/wenpai/internal/http/helpers"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
	"github.com/wenpaihq/wenpai/internal/rate"
)

// WithRateLimit applies a per-IP fixed-window limit. A limiter backend
// failure fails open: availability beats strictness for login endpoints.
func WithRateLimit(limiter rate.Limiter, name string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := name + ":" + helpers.ClientIP(r)
			res, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())+1))
				}
				httperrors.WriteError(w, httperrors.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
