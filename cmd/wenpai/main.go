package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wenpaihq/wenpai/internal/aiproxy"
	"github.com/wenpaihq/wenpai/internal/auth"
	"github.com/wenpaihq/wenpai/internal/authing"
	"github.com/wenpaihq/wenpai/internal/billing"
	"github.com/wenpaihq/wenpai/internal/cache"
	"github.com/wenpaihq/wenpai/internal/config"
	httpserver "github.com/wenpaihq/wenpai/internal/http"
	aictrl "github.com/wenpaihq/wenpai/internal/http/controllers/ai"
	authctrl "github.com/wenpaihq/wenpai/internal/http/controllers/auth"
	billingctrl "github.com/wenpaihq/wenpai/internal/http/controllers/billing"
	healthctrl "github.com/wenpaihq/wenpai/internal/http/controllers/health"
	"github.com/wenpaihq/wenpai/internal/metrics"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
	"github.com/wenpaihq/wenpai/internal/plan"
	"github.com/wenpaihq/wenpai/internal/rate"
	"github.com/wenpaihq/wenpai/internal/tokenstore"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wenpai: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; system env always wins.
	_ = godotenv.Load()

	cfgPath := os.Getenv("WENPAI_CONFIG")
	if cfgPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			cfgPath = "config.yaml"
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		RedisAddr:  cfg.Cache.Redis.Addr,
		RedisDB:    cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.SessionTTL(),
	})

	store, cleanup, err := buildStore(ctx, cfg, c)
	if err != nil {
		return err
	}
	defer cleanup()

	plans := plan.Default()
	if cfg.Plans.File != "" {
		if plans, err = plan.LoadFile(cfg.Plans.File); err != nil {
			return err
		}
	}

	client := authing.New(cfg.Authing.Host, cfg.Authing.ClientID, cfg.Authing.ClientSecret, cfg.Authing.Scope)

	orch := auth.New(client, store, auth.Config{
		CallbackURL:     cfg.CallbackURL(),
		Issuer:          cfg.App.Name,
		StateSecret:     []byte(cfg.Session.StateSecret),
		StateTTL:        cfg.StateTTL(),
		OfflineFallback: cfg.Session.OfflineFallback,
	})
	orch.Subscribe(metrics.AuthListener)

	registry, err := aiproxy.NewRegistry(cfg.AI.Providers)
	if err != nil {
		return err
	}

	checkout := &billing.Checkout{
		Base:       cfg.Billing.CheckoutBase,
		SuccessURL: cfg.Billing.SuccessURL,
	}

	authControllers := authctrl.New(orch, authctrl.Config{
		CookieName:     cfg.Session.CookieName,
		CookieDomain:   cfg.Session.Domain,
		Secure:         cfg.Session.Secure,
		SessionTTL:     cfg.SessionTTL(),
		HomeURL:        cfg.Server.BaseURL,
		LogoutRedirect: cfg.Authing.LogoutRedirect,
	})

	handler := httpserver.NewRouter(httpserver.RouterDeps{
		Auth:    authControllers,
		AI:      aictrl.New(orch, registry, plans, cfg.Session.CookieName),
		Billing: billingctrl.New(orch, checkout, cfg.Session.CookieName),
		Health:  &healthctrl.Controller{},

		LoginLimiter:    buildLimiter(cfg, c, cfg.Rate.Login.Limit, cfg.Rate.Login.Window),
		CallbackLimiter: buildLimiter(cfg, c, cfg.Rate.Callback.Limit, cfg.Rate.Callback.Window),
		ProxyLimiter:    buildLimiter(cfg, c, cfg.Rate.Proxy.Limit, cfg.Rate.Proxy.Window),
	})

	logger.L().Info("wenpai auth service starting",
		logger.String("env", cfg.App.Env),
		logger.String("authing_host", cfg.Authing.Host),
		logger.String("session_store", cfg.Session.Store),
	)

	return httpserver.NewServer(cfg.Server.Addr, handler).Run(ctx)
}

func buildStore(ctx context.Context, cfg *config.Config, c cache.Cache) (tokenstore.Store, func(), error) {
	if cfg.Session.Store == "postgres" {
		pg, err := tokenstore.NewPostgresStore(ctx, cfg.Storage.DSN, cfg.SessionTTL())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres token store: %w", err)
		}
		go purgeLoop(ctx, pg)
		return pg, pg.Close, nil
	}
	return tokenstore.NewCacheStore(c, cfg.SessionTTL()), func() {}, nil
}

func buildLimiter(cfg *config.Config, c cache.Cache, limit int, window string) rate.Limiter {
	if !cfg.Rate.Enabled {
		return nil
	}
	win := config.ParseWindow(window)
	if client, ok := cache.Redis(c); ok {
		return rate.NewRedisLimiter(client, "rl:", limit, win)
	}
	return rate.NewMemoryLimiter(limit, win)
}

func purgeLoop(ctx context.Context, pg *tokenstore.PostgresStore) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := pg.PurgeExpired(ctx); n > 0 {
				logger.L().Debug("expired sessions purged", logger.Int("count", int(n)))
			}
		}
	}
}
