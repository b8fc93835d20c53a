package middlewares

import (
	"net/http"
	"strings"
)

// WithCallbackRepair rewrites OAuth callback requests whose path arrives
// with the registered redirect URLs glued on with semicolons:
//
//	/auth/callback;https://app.example.com/auth/callback;...?code=X&state=Y
//
// Authing emits these when an application has several callback URLs
// configured. The real code and state survive in the query string, so the
// request is rerouted to the canonical path instead of 404ing mid-login.
func WithCallbackRepair(route string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, route+";") {
				r.URL.Path = route
				r.URL.RawPath = ""
			}
			next.ServeHTTP(w, r)
		})
	}
}
