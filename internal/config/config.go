// Package config loads the service configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wenpaihq/wenpai/internal/security/secretbox"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env  string `yaml:"env"`
		Name string `yaml:"name"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL is the externally visible origin, used to build the
		// Authing redirect_uri.
		BaseURL            string   `yaml:"base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Authing struct {
		Host         string `yaml:"host"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"` // may be secretbox-encrypted
		Scope        string `yaml:"scope"`
		CallbackPath string `yaml:"callback_path"`
		// LogoutRedirect is where Authing sends the browser after session end.
		LogoutRedirect string `yaml:"logout_redirect"`
	} `yaml:"authing"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		Domain     string `yaml:"domain"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"`
		// Store selects the durable token store: "cache" | "postgres".
		Store string `yaml:"store"`
		// StateSecret signs the OAuth state JWT; may be secretbox-encrypted.
		StateSecret string `yaml:"state_secret"`
		StateTTL    string `yaml:"state_ttl"`
		// OfflineFallback enables the degraded local pseudo-session when
		// Authing is unreachable.
		OfflineFallback bool `yaml:"offline_fallback"`
	} `yaml:"session"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Storage struct {
		// DSN is the Postgres connection string, required when
		// session.store is "postgres".
		DSN string `yaml:"dsn"`
	} `yaml:"storage"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Callback struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"callback"`
		Proxy struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"proxy"`
	} `yaml:"rate"`

	Plans struct {
		// File optionally overrides the compiled-in plan table.
		File string `yaml:"file"`
	} `yaml:"plans"`

	AI struct {
		Providers []AIProvider `yaml:"providers"`
	} `yaml:"ai"`

	Billing struct {
		CheckoutBase string `yaml:"checkout_base"`
		SuccessURL   string `yaml:"success_url"`
	} `yaml:"billing"`
}

// AIProvider describes one upstream LLM endpoint the proxy forwards to.
type AIProvider struct {
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	ChatPath string `yaml:"chat_path"`
	APIKey   string `yaml:"api_key"` // may be secretbox-encrypted
	Model    string `yaml:"model"`
	// Feature is the plan-table feature gating this provider.
	Feature string `yaml:"feature"`
}

// Load reads the YAML file at path, applies env overrides and defaults, and
// resolves encrypted secrets.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setStr(&c.App.Env, "WENPAI_ENV")
	setStr(&c.Server.Addr, "WENPAI_ADDR")
	setStr(&c.Server.BaseURL, "WENPAI_BASE_URL")
	setStr(&c.Log.Level, "WENPAI_LOG_LEVEL")
	setStr(&c.Authing.Host, "AUTHING_HOST")
	setStr(&c.Authing.ClientID, "AUTHING_CLIENT_ID")
	setStr(&c.Authing.ClientSecret, "AUTHING_CLIENT_SECRET")
	setStr(&c.Session.StateSecret, "WENPAI_STATE_SECRET")
	setStr(&c.Cache.Kind, "WENPAI_CACHE_KIND")
	setStr(&c.Cache.Redis.Addr, "WENPAI_REDIS_ADDR")
	setInt(&c.Cache.Redis.DB, "WENPAI_REDIS_DB")
	setStr(&c.Storage.DSN, "WENPAI_DATABASE_DSN")
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "wenpai"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Authing.Scope == "" {
		c.Authing.Scope = "openid profile email phone"
	}
	if c.Authing.CallbackPath == "" {
		c.Authing.CallbackPath = "/auth/callback"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "wp_sid"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "720h"
	}
	if c.Session.Store == "" {
		c.Session.Store = "cache"
	}
	if c.Session.StateTTL == "" {
		c.Session.StateTTL = "10m"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Billing.CheckoutBase == "" {
		c.Billing.CheckoutBase = "https://www.creem.io/payment"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 30
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Callback.Limit == 0 {
		c.Rate.Callback.Limit = 30
		c.Rate.Callback.Window = "1m"
	}
	if c.Rate.Proxy.Limit == 0 {
		c.Rate.Proxy.Limit = 60
		c.Rate.Proxy.Window = "1m"
	}
}

func (c *Config) resolveSecrets() error {
	var err error
	if c.Authing.ClientSecret, err = secretbox.Resolve(c.Authing.ClientSecret); err != nil {
		return fmt.Errorf("authing.client_secret: %w", err)
	}
	if c.Session.StateSecret, err = secretbox.Resolve(c.Session.StateSecret); err != nil {
		return fmt.Errorf("session.state_secret: %w", err)
	}
	for i := range c.AI.Providers {
		if c.AI.Providers[i].APIKey, err = secretbox.Resolve(c.AI.Providers[i].APIKey); err != nil {
			return fmt.Errorf("ai.providers[%s].api_key: %w", c.AI.Providers[i].Name, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Authing.Host == "" {
		return fmt.Errorf("authing.host is required")
	}
	if c.Authing.ClientID == "" {
		return fmt.Errorf("authing.client_id is required")
	}
	if c.Session.StateSecret == "" {
		return fmt.Errorf("session.state_secret is required")
	}
	if c.Session.Store == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required when session.store is postgres")
	}
	for _, d := range []string{c.Session.TTL, c.Session.StateTTL} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration %q: %w", d, err)
		}
	}
	return nil
}

// SessionTTL returns the parsed session lifetime.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}

// StateTTL returns the parsed OAuth state lifetime.
func (c *Config) StateTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.StateTTL)
	return d
}

// CallbackURL is the absolute redirect_uri registered with Authing.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + c.Authing.CallbackPath
}

// ParseWindow parses a rate window string, falling back to a minute.
func ParseWindow(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

func setStr(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
