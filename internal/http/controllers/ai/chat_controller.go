// Package ai exposes the chat proxy endpoint. The handler authenticates
// the session, gates on the provider's plan feature, and relays the
// request; it adds no provider-specific behavior.
package ai

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wenpaihq/wenpai/internal/aiproxy"
	"github.com/wenpaihq/wenpai/internal/auth"
	httperrors "github.com/wenpaihq/wenpai/internal/http/errors"
	"github.com/wenpaihq/wenpai/internal/http/helpers"
	"github.com/wenpaihq/wenpai/internal/metrics"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
	"github.com/wenpaihq/wenpai/internal/plan"
)

// Controller wires the proxy to the orchestrator and plan table.
type Controller struct {
	orch       *auth.Orchestrator
	registry   *aiproxy.Registry
	forwarder  *aiproxy.Forwarder
	plans      *plan.Table
	cookieName string
}

func New(orch *auth.Orchestrator, registry *aiproxy.Registry, plans *plan.Table, cookieName string) *Controller {
	return &Controller{
		orch:       orch,
		registry:   registry,
		forwarder:  aiproxy.NewForwarder(),
		plans:      plans,
		cookieName: cookieName,
	}
}

type successEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Chat handles POST /api/ai/{provider}/chat.
func (c *Controller) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ai.Chat"))

	providerName := chi.URLParam(r, "provider")
	provider := c.registry.Lookup(providerName)
	if provider == nil {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("unknown provider"))
		return
	}

	sid := sessionID(r, c.cookieName)
	user, err := c.orch.EnsureFresh(ctx, sid)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	if user.Offline {
		// Offline pseudo-sessions cannot spend upstream quota.
		httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("not available in offline mode"))
		return
	}

	if decision := c.plans.Check(provider.Feature, user.Tier); !decision.Allowed {
		metrics.FeatureDenied.WithLabelValues(provider.Feature).Inc()
		log.Info("feature denied", logger.Feature(provider.Feature), logger.Tier(string(user.Tier)))
		httperrors.WriteError(w, httperrors.ErrPlanRequired.WithDetail(decision.Message))
		return
	}

	var req aiproxy.ChatRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	data, err := c.forwarder.Forward(ctx, provider, &req)
	if err != nil {
		metrics.ProxyRequests.WithLabelValues(provider.Name, "failure").Inc()
		log.Warn("proxy request failed", logger.Provider(provider.Name), logger.Err(err))

		var upstream *aiproxy.UpstreamError
		if errors.As(err, &upstream) {
			helpers.WriteJSON(w, http.StatusBadGateway, errorEnvelope{
				Error:  "upstream_error",
				Detail: upstream.Detail,
			})
			return
		}
		helpers.WriteJSON(w, http.StatusBadGateway, errorEnvelope{Error: "provider_unreachable"})
		return
	}

	metrics.ProxyRequests.WithLabelValues(provider.Name, "success").Inc()
	helpers.WriteJSON(w, http.StatusOK, successEnvelope{Success: true, Data: data})
}

// Providers handles GET /api/ai/providers, listing configured names.
func (c *Controller) Providers(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"providers": c.registry.Names(),
	})
}

func sessionID(r *http.Request, cookieName string) string {
	ck, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}
