// Package authing wraps Authing's OIDC authorization-code endpoints. It is
// pure protocol translation and holds no session state, so swapping identity
// providers only requires reimplementing this package.
package authing

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	authorizePath  = "/oidc/auth"
	tokenPath      = "/oidc/token"
	userInfoPath   = "/oidc/me"
	endSessionPath = "/oidc/session/end"

	// requestTimeout bounds every network call so a hung provider degrades
	// to a normal exchange failure instead of blocking the caller.
	requestTimeout = 10 * time.Second
)

// Client talks to one Authing application.
type Client struct {
	Host         string
	ClientID     string
	ClientSecret string
	Scope        string

	http *http.Client
}

// New builds a client for the given Authing host (e.g. https://xxx.authing.cn).
func New(host, clientID, clientSecret, scope string) *Client {
	if scope == "" {
		scope = "openid profile email phone"
	}
	return &Client{
		Host:         strings.TrimRight(host, "/"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scope:        scope,
		http:         &http.Client{Timeout: requestTimeout},
	}
}

// AuthorizeURL builds the authorization endpoint URL. Deterministic for a
// given state; when state is empty a fresh opaque token is generated for
// CSRF binding.
func (c *Client) AuthorizeURL(redirectURI, state string) string {
	if state == "" {
		state = NewStateToken()
	}
	u, _ := url.Parse(c.Host + authorizePath)
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", c.Scope)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String()
}

// ExchangeCode exchanges an authorization code at the token endpoint.
// Non-2xx responses surface as *TokenExchangeError with the raw body.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("redirect_uri", redirectURI)
	return c.tokenRequest(ctx, form)
}

// RefreshToken performs a refresh_token grant. Same failure surface as
// ExchangeCode; the orchestrator treats both uniformly.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	return c.tokenRequest(ctx, form)
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authing: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &TokenExchangeError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var ts TokenSet
	if err := json.NewDecoder(resp.Body).Decode(&ts); err != nil {
		return nil, fmt.Errorf("authing: decode token response: %w", err)
	}
	if ts.AccessToken == "" {
		return nil, &TokenExchangeError{Status: resp.StatusCode, Body: "response missing access_token"}
	}
	return &ts, nil
}

// FetchUserInfo retrieves the raw userinfo document for an access token.
// The payload is returned unparsed; shaping it into the canonical UserInfo
// is the session normalizer's job.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Host+userInfoPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authing: userinfo request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return nil, &UserInfoFetchError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if !json.Valid(body) {
		return nil, &UserInfoFetchError{Status: resp.StatusCode, Body: "invalid JSON in userinfo response"}
	}
	return json.RawMessage(body), nil
}

// LogoutURL builds the RP-initiated end-session URL. No network call.
func (c *Client) LogoutURL(redirectURI string) string {
	u, _ := url.Parse(c.Host + endSessionPath)
	q := u.Query()
	if redirectURI != "" {
		q.Set("post_logout_redirect_uri", redirectURI)
	}
	q.Set("client_id", c.ClientID)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewStateToken returns a fresh opaque state value.
func NewStateToken() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
