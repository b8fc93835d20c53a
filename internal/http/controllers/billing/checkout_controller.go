// Package billing exposes the checkout redirect endpoint.
package billing

import (
	"net/http"

	"github.com/wenpaihq/wenpai/internal/auth"
	"github.com/wenpaihq/wenpai/internal/billing"
	httperrors "github.com/wenpaihq/wenpai/internal/http/errors"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
)

type Controller struct {
	orch       *auth.Orchestrator
	checkout   *billing.Checkout
	cookieName string
}

func New(orch *auth.Orchestrator, checkout *billing.Checkout, cookieName string) *Controller {
	return &Controller{orch: orch, checkout: checkout, cookieName: cookieName}
}

// Checkout handles GET /api/billing/checkout?price_id=...: an external
// navigation to Creem. Requires a real (non-offline) authenticated session
// so the checkout is bound to a known customer email.
func (c *Controller) Checkout(w http.ResponseWriter, r *http.Request) {
	priceID := r.URL.Query().Get("price_id")
	if priceID == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("price_id required"))
		return
	}

	sid := ""
	if ck, err := r.Cookie(c.cookieName); err == nil {
		sid = ck.Value
	}
	user, err := c.orch.EnsureFresh(r.Context(), sid)
	if err != nil || user.Offline {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	target := c.checkout.URL(priceID, user.Email)
	logger.From(r.Context()).Info("redirecting to checkout",
		logger.UserID(user.ID), logger.String("price_id", priceID))
	http.Redirect(w, r, target, http.StatusFound)
}
