package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wenpaihq/wenpai/internal/aiproxy"
	"github.com/wenpaihq/wenpai/internal/auth"
	"github.com/wenpaihq/wenpai/internal/authing"
	"github.com/wenpaihq/wenpai/internal/cache"
	"github.com/wenpaihq/wenpai/internal/config"
	"github.com/wenpaihq/wenpai/internal/plan"
	"github.com/wenpaihq/wenpai/internal/tokenstore"
)

type stubProvider struct{}

func (stubProvider) AuthorizeURL(redirectURI, state string) string { return "https://idp.test/auth" }
func (stubProvider) ExchangeCode(context.Context, string, string) (*authing.TokenSet, error) {
	return nil, nil
}
func (stubProvider) RefreshToken(context.Context, string) (*authing.TokenSet, error) {
	return nil, nil
}
func (stubProvider) FetchUserInfo(context.Context, string) (json.RawMessage, error) {
	return nil, nil
}
func (stubProvider) LogoutURL(string) string { return "" }

// seedSession plants an authenticated session straight into the token
// store, the way a completed callback would have.
func seedSession(t *testing.T, store tokenstore.Store, sid, rawUser string) {
	t.Helper()
	tokens := &authing.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600}
	store.Save(context.Background(), sid, tokenstore.NewRecord(tokens, json.RawMessage(rawUser), time.Now()))
}

func newTestRouter(t *testing.T, upstreamURL string) (http.Handler, tokenstore.Store) {
	t.Helper()
	store := tokenstore.NewCacheStore(cache.NewMemory(time.Hour), time.Hour)
	orch := auth.New(stubProvider{}, store, auth.Config{
		CallbackURL: "https://app.test/auth/callback",
		Issuer:      "wenpai-test",
		StateSecret: []byte("test-state-secret"),
	})

	registry, err := aiproxy.NewRegistry([]config.AIProvider{
		{Name: "deepseek", BaseURL: upstreamURL, Model: "deepseek-chat"},
		{Name: "premium-model", BaseURL: upstreamURL, Feature: "ai.model.premium"},
	})
	if err != nil {
		t.Fatal(err)
	}

	c := New(orch, registry, plan.Default(), "wp_sid")
	r := chi.NewRouter()
	r.Post("/api/ai/{provider}/chat", c.Chat)
	r.Get("/api/ai/providers", c.Providers)
	return r, store
}

func chatRequest(sid, provider, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/ai/"+provider+"/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "wp_sid", Value: sid})
	}
	return req
}

const chatBody = `{"messages":[{"role":"user","content":"你好"}]}`

func TestChat_Success(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"好的"}}]}`))
	}))
	defer upstream.Close()

	router, store := newTestRouter(t, upstream.URL)
	seedSession(t, store, "sid-1", `{"sub":"u1","subscription":{"tier":"pro"}}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, chatRequest("sid-1", "deepseek", chatBody))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body)
	}
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || !strings.Contains(string(env.Data), "choices") {
		t.Fatalf("envelope: %s", rec.Body)
	}
}

func TestChat_Unauthenticated(t *testing.T) {
	router, _ := newTestRouter(t, "http://unused.test")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, chatRequest("", "deepseek", chatBody))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, chatRequest("ghost-session", "deepseek", chatBody))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown session status: %d", rec.Code)
	}
}

func TestChat_UnknownProvider(t *testing.T) {
	router, store := newTestRouter(t, "http://unused.test")
	seedSession(t, store, "sid-1", `{"sub":"u1"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, chatRequest("sid-1", "nonexistent", chatBody))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestChat_PlanGate(t *testing.T) {
	router, store := newTestRouter(t, "http://unused.test")
	// Trial user asking for the premium-gated provider.
	seedSession(t, store, "sid-trial", `{"sub":"u1"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, chatRequest("sid-trial", "premium-model", chatBody))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body)
	}
}

func TestChat_PremiumUserPassesGate(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	router, store := newTestRouter(t, upstream.URL)
	seedSession(t, store, "sid-prem", `{"sub":"u1","subscription":{"tier":"premium"}}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, chatRequest("sid-prem", "premium-model", chatBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body)
	}
}

func TestChat_UpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model overloaded"}`))
	}))
	defer upstream.Close()

	router, store := newTestRouter(t, upstream.URL)
	seedSession(t, store, "sid-1", `{"sub":"u1"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, chatRequest("sid-1", "deepseek", chatBody))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: %d", rec.Code)
	}
	var env struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error != "upstream_error" || !strings.Contains(env.Detail, "overloaded") {
		t.Fatalf("envelope: %s", rec.Body)
	}
}

func TestChat_ProviderUnreachable(t *testing.T) {
	router, store := newTestRouter(t, "http://127.0.0.1:1")
	seedSession(t, store, "sid-1", `{"sub":"u1"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, chatRequest("sid-1", "deepseek", chatBody))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "provider_unreachable") {
		t.Fatalf("body: %s", rec.Body)
	}
}

func TestChat_RejectsNonJSONContentType(t *testing.T) {
	router, store := newTestRouter(t, "http://unused.test")
	seedSession(t, store, "sid-1", `{"sub":"u1"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/ai/deepseek/chat", strings.NewReader(chatBody))
	req.AddCookie(&http.Cookie{Name: "wp_sid", Value: "sid-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
}

func TestProviders(t *testing.T) {
	router, _ := newTestRouter(t, "http://unused.test")

	req := httptest.NewRequest(http.MethodGet, "/api/ai/providers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var out struct {
		Success   bool     `json:"success"`
		Providers []string `json:"providers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || len(out.Providers) != 2 {
		t.Fatalf("body: %s", rec.Body)
	}
}
