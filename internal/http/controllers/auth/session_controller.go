package auth

import (
	"errors"
	"net/http"

	"github.com/wenpaihq/wenpai/internal/auth"
	httperrors "github.com/wenpaihq/wenpai/internal/http/errors"
	"github.com/wenpaihq/wenpai/internal/http/helpers"
	"github.com/wenpaihq/wenpai/internal/metrics"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
	"github.com/wenpaihq/wenpai/internal/session"
)

type meResponse struct {
	State string            `json:"state"`
	User  *session.UserInfo `json:"user,omitempty"`
}

// Me handles GET /auth/me: the session introspection endpoint the frontend
// polls on load. An expired access token triggers the orchestrator's single
// silent-refresh attempt.
func (c *Controllers) Me(w http.ResponseWriter, r *http.Request) {
	sid := c.sessionID(r)
	user, err := c.orch.EnsureFresh(r.Context(), sid)
	if err != nil {
		if !errors.Is(err, auth.ErrNotAuthenticated) {
			logger.From(r.Context()).Warn("session check failed", logger.SessionID(sid), logger.Err(err))
		}
		helpers.WriteJSON(w, http.StatusOK, meResponse{State: auth.StateUnauthenticated.String()})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, meResponse{
		State: auth.StateAuthenticated.String(),
		User:  user,
	})
}

// Refresh handles POST /auth/refresh: an explicit silent-refresh request.
func (c *Controllers) Refresh(w http.ResponseWriter, r *http.Request) {
	sid := c.sessionID(r)
	if sid == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	user, err := c.orch.Refresh(r.Context(), sid)
	if err != nil {
		metrics.Refreshes.WithLabelValues("failure").Inc()
		c.clearSessionCookie(w)
		httperrors.WriteError(w, httperrors.ErrUnauthorized.WithCause(err))
		return
	}

	metrics.Refreshes.WithLabelValues("success").Inc()
	helpers.WriteJSON(w, http.StatusOK, meResponse{
		State: auth.StateAuthenticated.String(),
		User:  user,
	})
}

type logoutResponse struct {
	Success   bool   `json:"success"`
	LogoutURL string `json:"logout_url,omitempty"`
}

// Logout handles POST /auth/logout. It clears the durable session and the
// cookie but does not navigate; the response carries Authing's end-session
// URL for frontends that also want to terminate the provider session.
func (c *Controllers) Logout(w http.ResponseWriter, r *http.Request) {
	sid := c.sessionID(r)
	c.orch.Logout(r.Context(), sid)
	c.clearSessionCookie(w)
	metrics.Logouts.Inc()

	helpers.WriteJSON(w, http.StatusOK, logoutResponse{
		Success:   true,
		LogoutURL: c.orch.LogoutURL(c.cfg.LogoutRedirect),
	})
}
