// Package metrics exposes Prometheus counters for the auth flow and the AI
// proxy. Registration happens at init on the default registry; /metrics is
// served by promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wenpaihq/wenpai/internal/auth"
	"github.com/wenpaihq/wenpai/internal/session"
)

var (
	LoginStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wenpai_auth_login_started_total",
		Help: "Login flows started (authorize redirects issued).",
	})

	CallbackResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wenpai_auth_callback_total",
		Help: "Callback outcomes by result class.",
	}, []string{"result"})

	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wenpai_auth_refresh_total",
		Help: "Silent token refresh attempts by result.",
	}, []string{"result"})

	Logouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wenpai_auth_logout_total",
		Help: "Logouts performed.",
	})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wenpai_auth_state_transitions_total",
		Help: "Auth state transitions observed via the orchestrator.",
	}, []string{"state"})

	ProxyRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wenpai_ai_proxy_requests_total",
		Help: "AI proxy requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	FeatureDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wenpai_plan_feature_denied_total",
		Help: "Feature gating denials by feature.",
	}, []string{"feature"})
)

// AuthListener is an orchestrator subscriber recording state transitions.
// Wired in main via orchestrator.Subscribe.
func AuthListener(sid string, user *session.UserInfo, state auth.State) {
	StateTransitions.WithLabelValues(state.String()).Inc()
}
