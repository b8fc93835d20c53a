package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	aictrl "github.com/wenpaihq/wenpai/internal/http/controllers/ai"
	authctrl "github.com/wenpaihq/wenpai/internal/http/controllers/auth"
	billingctrl "github.com/wenpaihq/wenpai/internal/http/controllers/billing"
	healthctrl "github.com/wenpaihq/wenpai/internal/http/controllers/health"
	httperrors "github.com/wenpaihq/wenpai/internal/http/errors"
	mw "github.com/wenpaihq/wenpai/internal/http/middlewares"
	"github.com/wenpaihq/wenpai/internal/rate"
)

// RouterDeps carries the controllers and limiters the router mounts.
type RouterDeps struct {
	Auth    *authctrl.Controllers
	AI      *aictrl.Controller
	Billing *billingctrl.Controller
	Health  *healthctrl.Controller

	LoginLimiter    rate.Limiter
	CallbackLimiter rate.Limiter
	ProxyLimiter    rate.Limiter
}

// NewRouter assembles the full route table.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Auth endpoints: never cached, rate-limited per IP.
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())
		r.With(mw.WithRateLimit(deps.LoginLimiter, "login")).
			Get("/auth/login", deps.Auth.Login)
		r.With(mw.WithRateLimit(deps.CallbackLimiter, "callback")).
			Get("/auth/callback", deps.Auth.Callback)
		r.Get("/auth/me", deps.Auth.Me)
		r.Post("/auth/refresh", deps.Auth.Refresh)
		r.Post("/auth/logout", deps.Auth.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/ai/providers", deps.AI.Providers)
		r.With(mw.WithRateLimit(deps.ProxyLimiter, "proxy")).
			Post("/ai/{provider}/chat", deps.AI.Chat)
		r.Get("/billing/checkout", deps.Billing.Checkout)
	})

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Callback repair sits innermost so the rewritten path is what chi
	// routes on.
	return mw.Chain(r,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithLogging(),
		mw.WithCallbackRepair("/auth/callback"),
	)
}
