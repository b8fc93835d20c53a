package auth

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/wenpaihq/wenpai/internal/auth"
	"github.com/wenpaihq/wenpai/internal/metrics"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
)

// Callback handles GET /auth/callback, the redirect target registered with
// Authing. The full request URI is handed to the orchestrator so its
// semicolon-joined-URL defense sees exactly what the provider sent. Every
// failure lands the user back on the home page with an error code rather
// than a bare JSON error: the browser is mid-redirect and has no client
// code running to render one.
func (c *Controllers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("auth.Callback"))

	result, err := c.orch.HandleCallback(ctx, r.URL.RequestURI())
	if err != nil {
		log.Warn("callback failed", logger.Err(err))
		metrics.CallbackResults.WithLabelValues(callbackResultLabel(err)).Inc()
		c.redirectWithError(w, r, err)
		return
	}

	if result.User.Offline {
		metrics.CallbackResults.WithLabelValues("offline").Inc()
	} else {
		metrics.CallbackResults.WithLabelValues("success").Inc()
	}

	c.setSessionCookie(w, result.SessionID)
	http.Redirect(w, r, c.safeReturnTo(result.ReturnTo), http.StatusFound)
}

func callbackResultLabel(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingAuthorizationCode):
		return "missing_code"
	case errors.Is(err, auth.ErrInvalidState):
		return "invalid_state"
	default:
		return "exchange_failed"
	}
}

// redirectWithError sends the user home with OAuth2-style error params the
// frontend shows as "login failed, please retry".
func (c *Controllers) redirectWithError(w http.ResponseWriter, r *http.Request, cause error) {
	code, desc := mapCallbackError(cause)

	u, err := url.Parse(c.cfg.HomeURL)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	q := u.Query()
	q.Set("error", code)
	q.Set("error_description", desc)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}

func mapCallbackError(err error) (code, description string) {
	switch {
	case errors.Is(err, auth.ErrMissingAuthorizationCode):
		return "invalid_request", "Login failed: the provider returned no authorization code. Please try again."
	case errors.Is(err, auth.ErrInvalidState):
		return "invalid_request", "Invalid or expired login session. Please try again."
	case errors.Is(err, auth.ErrCallbackExchangeFailed):
		return "server_error", "Failed to complete authentication. Please try again."
	default:
		return "server_error", "An unexpected error occurred. Please try again."
	}
}
