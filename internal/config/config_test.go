package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WENPAI_ENV", "WENPAI_ADDR", "WENPAI_BASE_URL", "WENPAI_LOG_LEVEL",
		"AUTHING_HOST", "AUTHING_CLIENT_ID", "AUTHING_CLIENT_SECRET",
		"WENPAI_STATE_SECRET", "WENPAI_CACHE_KIND", "WENPAI_REDIS_ADDR",
		"WENPAI_REDIS_DB", "WENPAI_DATABASE_DSN",
	} {
		t.Setenv(k, "")
	}
}

const minimalYAML = `
authing:
  host: https://wenpai.authing.cn
  client_id: client-1
  client_secret: plain-secret
session:
  state_secret: state-secret-1
`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Env != "dev" || cfg.App.Name != "wenpai" {
		t.Fatalf("app defaults: %+v", cfg.App)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr: %q", cfg.Server.Addr)
	}
	if cfg.Session.CookieName != "wp_sid" || cfg.Session.Store != "cache" {
		t.Fatalf("session defaults: %+v", cfg.Session)
	}
	if cfg.SessionTTL() != 720*time.Hour {
		t.Fatalf("session ttl: %v", cfg.SessionTTL())
	}
	if cfg.StateTTL() != 10*time.Minute {
		t.Fatalf("state ttl: %v", cfg.StateTTL())
	}
	if cfg.Authing.Scope != "openid profile email phone" {
		t.Fatalf("scope: %q", cfg.Authing.Scope)
	}
	if cfg.Billing.CheckoutBase != "https://www.creem.io/payment" {
		t.Fatalf("checkout base: %q", cfg.Billing.CheckoutBase)
	}
	if cfg.Rate.Login.Limit != 30 || cfg.Rate.Proxy.Limit != 60 {
		t.Fatalf("rate defaults: %+v", cfg.Rate)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WENPAI_ENV", "prod")
	t.Setenv("WENPAI_ADDR", ":9090")
	t.Setenv("AUTHING_CLIENT_SECRET", "from-env")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Env != "prod" || cfg.Server.Addr != ":9090" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Authing.ClientSecret != "from-env" {
		t.Fatalf("client secret: %q", cfg.Authing.ClientSecret)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTHING_HOST", "https://wenpai.authing.cn")
	t.Setenv("AUTHING_CLIENT_ID", "client-env")
	t.Setenv("WENPAI_STATE_SECRET", "env-state-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Authing.ClientID != "client-env" {
		t.Fatalf("client id: %q", cfg.Authing.ClientID)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	clearEnv(t)

	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"missing host", `
authing:
  client_id: c
session:
  state_secret: s
`, "authing.host"},
		{"missing client id", `
authing:
  host: https://x.authing.cn
session:
  state_secret: s
`, "authing.client_id"},
		{"missing state secret", `
authing:
  host: https://x.authing.cn
  client_id: c
`, "state_secret"},
		{"postgres without dsn", `
authing:
  host: https://x.authing.cn
  client_id: c
session:
  state_secret: s
  store: postgres
`, "storage.dsn"},
		{"bad ttl", `
authing:
  host: https://x.authing.cn
  client_id: c
session:
  state_secret: s
  ttl: not-a-duration
`, "duration"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.doc))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCallbackURL(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, minimalYAML+`
server:
  base_url: https://wenpai.example.com/
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.CallbackURL(); got != "https://wenpai.example.com/auth/callback" {
		t.Fatalf("callback url: %q", got)
	}
}

func TestParseWindow(t *testing.T) {
	if ParseWindow("30s") != 30*time.Second {
		t.Fatal("30s")
	}
	if ParseWindow("") != time.Minute {
		t.Fatal("empty should default to a minute")
	}
	if ParseWindow("-5s") != time.Minute {
		t.Fatal("negative should default to a minute")
	}
	if ParseWindow("garbage") != time.Minute {
		t.Fatal("garbage should default to a minute")
	}
}
