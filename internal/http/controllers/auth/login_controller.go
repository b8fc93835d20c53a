package auth

import (
	"net/http"

	httperrors "github.com/wenpaihq/wenpai/internal/http/errors"
	"github.com/wenpaihq/wenpai/internal/metrics"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
)

// Login handles GET /auth/login. It starts the authorization-code flow and
// redirects the browser to Authing; the flow re-enters at /auth/callback.
func (c *Controllers) Login(w http.ResponseWriter, r *http.Request) {
	returnTo := c.safeReturnTo(r.URL.Query().Get("return_to"))

	redirect, err := c.orch.BeginLogin(returnTo)
	if err != nil {
		logger.From(r.Context()).Error("login start failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	metrics.LoginStarted.Inc()
	logger.From(r.Context()).Debug("redirecting to provider",
		logger.SessionID(redirect.SessionID))

	http.Redirect(w, r, redirect.URL, http.StatusFound)
}
