// Package auth contains the HTTP controllers fronting the auth
// orchestrator: login start, OIDC callback, session introspection, refresh
// and logout.
package auth

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wenpaihq/wenpai/internal/auth"
)

// Config carries the cookie and redirect settings shared by the auth
// controllers.
type Config struct {
	CookieName   string
	CookieDomain string
	Secure       bool
	SessionTTL   time.Duration
	// HomeURL is where failed callbacks send the user.
	HomeURL string
	// LogoutRedirect is the post-logout landing passed to Authing.
	LogoutRedirect string
}

// Controllers bundles the auth endpoints around one orchestrator.
type Controllers struct {
	orch *auth.Orchestrator
	cfg  Config
}

func New(orch *auth.Orchestrator, cfg Config) *Controllers {
	if cfg.CookieName == "" {
		cfg.CookieName = "wp_sid"
	}
	if cfg.HomeURL == "" {
		cfg.HomeURL = "/"
	}
	return &Controllers{orch: orch, cfg: cfg}
}

func (c *Controllers) sessionID(r *http.Request) string {
	ck, err := r.Cookie(c.cfg.CookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (c *Controllers) setSessionCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    sid,
		Path:     "/",
		Domain:   c.cfg.CookieDomain,
		MaxAge:   int(c.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Controllers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeReturnTo keeps return targets inside the app: only absolute paths
// (no scheme, no host) survive, anything else falls back to home.
func (c *Controllers) safeReturnTo(raw string) string {
	if raw == "" {
		return c.cfg.HomeURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return c.cfg.HomeURL
	}
	return u.String()
}
