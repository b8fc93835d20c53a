// Package auth owns the authentication state machine for Wenpai sessions:
// it drives login, callback exchange, silent refresh and logout against the
// Authing adapter, persists through the token store, and publishes state
// transitions to subscribers. It is the single source of truth for "is this
// session logged in" and the only component that mutates auth state.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/wenpaihq/wenpai/internal/authing"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
	"github.com/wenpaihq/wenpai/internal/plan"
	"github.com/wenpaihq/wenpai/internal/session"
	"github.com/wenpaihq/wenpai/internal/tokenstore"
)

// ProviderClient is the slice of the Authing adapter the orchestrator
// needs. Satisfied by *authing.Client; tests substitute a mock.
type ProviderClient interface {
	AuthorizeURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*authing.TokenSet, error)
	RefreshToken(ctx context.Context, refreshToken string) (*authing.TokenSet, error)
	FetchUserInfo(ctx context.Context, accessToken string) (json.RawMessage, error)
	LogoutURL(redirectURI string) string
}

// Listener receives every committed state transition for a session. Calls
// are synchronous, in subscription order. A panicking listener is isolated:
// it is logged and the remaining listeners still run.
type Listener func(sid string, user *session.UserInfo, state State)

// Config parameterizes the orchestrator.
type Config struct {
	// CallbackURL is the absolute redirect_uri registered with Authing.
	CallbackURL string
	// Issuer and StateSecret sign the OAuth state JWT.
	Issuer      string
	StateSecret []byte
	StateTTL    time.Duration
	// OfflineFallback permits a local pseudo-session when Authing is
	// unreachable (transport failure, not an auth rejection).
	OfflineFallback bool
}

// LoginRedirect is the result of starting a login.
type LoginRedirect struct {
	URL       string
	SessionID string
}

// CallbackResult is the outcome of a successful callback exchange.
type CallbackResult struct {
	SessionID string
	User      *session.UserInfo
	ReturnTo  string
}

type subscriber struct {
	id int
	fn Listener
}

// Orchestrator implements the session auth state machine.
type Orchestrator struct {
	client ProviderClient
	store  tokenstore.Store
	signer *StateSigner
	cfg    Config

	mu      sync.Mutex
	users   map[string]*session.UserInfo
	states  map[string]State
	subs    []subscriber
	nextSub int

	// refreshGroup collapses concurrent refreshes for one session into a
	// single network attempt. The attempt itself is never retried.
	refreshGroup singleflight.Group
}

// New builds an orchestrator. It performs no I/O; per-session state is
// checked lazily and synchronously from the token store on Resume.
func New(client ProviderClient, store tokenstore.Store, cfg Config) *Orchestrator {
	return &Orchestrator{
		client: client,
		store:  store,
		signer: &StateSigner{Secret: cfg.StateSecret, Issuer: cfg.Issuer, TTL: cfg.StateTTL},
		cfg:    cfg,
		users:  make(map[string]*session.UserInfo),
		states: make(map[string]State),
	}
}

// Subscribe registers a listener and returns its handle for Unsubscribe.
func (o *Orchestrator) Subscribe(fn Listener) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextSub++
	o.subs = append(o.subs, subscriber{id: o.nextSub, fn: fn})
	return o.nextSub
}

// Unsubscribe removes a listener by handle. Unknown handles are ignored.
func (o *Orchestrator) Unsubscribe(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, s := range o.subs {
		if s.id == id {
			o.subs = append(o.subs[:i], o.subs[i+1:]...)
			return
		}
	}
}

// BeginLogin starts an authorization-code flow: it mints a session ID,
// binds it and returnTo into a signed state token, and returns the Authing
// authorize URL to redirect the browser to. The flow leaves the app here;
// it re-enters at HandleCallback.
func (o *Orchestrator) BeginLogin(returnTo string) (*LoginRedirect, error) {
	if returnTo == "" {
		returnTo = "/"
	}
	sid := uuid.NewString()
	state, err := o.signer.Sign(StateClaims{
		SessionID: sid,
		ReturnTo:  returnTo,
		Nonce:     authing.NewStateToken(),
	})
	if err != nil {
		return nil, fmt.Errorf("auth: sign state: %w", err)
	}
	return &LoginRedirect{
		URL:       o.client.AuthorizeURL(o.cfg.CallbackURL, state),
		SessionID: sid,
	}, nil
}

// HandleCallback processes the provider redirect. rawURI may be the full
// request URI; semicolon-joined redirect URI corruption is tolerated (see
// ParseCallbackQuery). On success the tokens and raw user are persisted,
// the session transitions to authenticated, and the canonical user is
// returned. On any failure the session ends unauthenticated and the token
// store is left untouched. Failures are terminal: no automatic retry.
func (o *Orchestrator) HandleCallback(ctx context.Context, rawURI string) (*CallbackResult, error) {
	params := ParseCallbackQuery(rawURI)

	if params.Code == "" {
		if params.Error != "" {
			return nil, fmt.Errorf("%w: provider error %s: %s",
				ErrCallbackExchangeFailed, params.Error, params.ErrorDescription)
		}
		return nil, ErrMissingAuthorizationCode
	}

	claims, err := o.signer.Parse(params.State)
	if err != nil {
		return nil, err
	}
	sid := claims.SessionID

	o.transition(sid, nil, StateLoading)

	tokens, err := o.client.ExchangeCode(ctx, params.Code, o.cfg.CallbackURL)
	if err != nil {
		if user := o.maybeOffline(sid, err); user != nil {
			return &CallbackResult{SessionID: sid, User: user, ReturnTo: claims.ReturnTo}, nil
		}
		return nil, o.failCallback(ctx, sid, err)
	}

	rawUser, err := o.client.FetchUserInfo(ctx, tokens.AccessToken)
	if err != nil {
		if user := o.maybeOffline(sid, err); user != nil {
			return &CallbackResult{SessionID: sid, User: user, ReturnTo: claims.ReturnTo}, nil
		}
		return nil, o.failCallback(ctx, sid, err)
	}

	user, err := session.Normalize(rawUser, tokens)
	if err != nil {
		return nil, o.failCallback(ctx, sid, err)
	}

	o.store.Save(ctx, sid, tokenstore.NewRecord(tokens, rawUser, time.Now()))
	o.transition(sid, user, StateAuthenticated)

	logger.From(ctx).Info("login completed",
		logger.SessionID(sid), logger.UserID(user.ID), logger.Tier(user.Tier.String()))

	return &CallbackResult{SessionID: sid, User: user, ReturnTo: claims.ReturnTo}, nil
}

// failCallback commits the unauthenticated state and wraps the cause under
// ErrCallbackExchangeFailed. The token store was never written for this
// attempt, so there is nothing to roll back.
func (o *Orchestrator) failCallback(ctx context.Context, sid string, cause error) error {
	o.transition(sid, nil, StateUnauthenticated)
	logger.From(ctx).Warn("callback exchange failed", logger.SessionID(sid), logger.Err(cause))
	return fmt.Errorf("%w: %w", ErrCallbackExchangeFailed, cause)
}

// maybeOffline mints the degraded pseudo-session when enabled and the
// failure was transport-level (the provider was unreachable, as opposed to
// rejecting the exchange). Offline sessions live in process memory only and
// are never written to the token store.
func (o *Orchestrator) maybeOffline(sid string, cause error) *session.UserInfo {
	if !o.cfg.OfflineFallback {
		return nil
	}
	var exchangeErr *authing.TokenExchangeError
	var userInfoErr *authing.UserInfoFetchError
	if errors.As(cause, &exchangeErr) || errors.As(cause, &userInfoErr) {
		// The provider answered; this is an auth rejection, not an outage.
		return nil
	}

	short := sid
	if len(short) > 8 {
		short = short[:8]
	}
	user := &session.UserInfo{
		ID:       "offline-" + short,
		Nickname: "离线用户",
		Tier:     plan.TierTrial,
		Offline:  true,
	}
	o.transition(sid, user, StateAuthenticated)
	logger.L().Warn("provider unreachable, offline session minted",
		logger.SessionID(sid), logger.Err(cause))
	return user
}

// Resume synchronously derives the session state from the token store with
// no network call: a persisted, non-expired record is authenticated,
// anything else is unauthenticated. The canonical user is rebuilt from the
// persisted raw profile.
func (o *Orchestrator) Resume(ctx context.Context, sid string) (*session.UserInfo, State) {
	if sid == "" {
		return nil, StateUnauthenticated
	}

	o.mu.Lock()
	if u, ok := o.users[sid]; ok && o.states[sid] == StateAuthenticated {
		o.mu.Unlock()
		return u, StateAuthenticated
	}
	o.mu.Unlock()

	rec, ok := o.store.Load(ctx, sid)
	if !ok || rec.Expired(time.Now()) {
		return nil, StateUnauthenticated
	}

	user, err := session.Normalize(rec.RawUser, &rec.Tokens)
	if err != nil {
		// A persisted profile that no longer normalizes reads as no session.
		logger.From(ctx).Warn("persisted session unusable", logger.SessionID(sid), logger.Err(err))
		return nil, StateUnauthenticated
	}

	o.mu.Lock()
	o.users[sid] = user
	o.states[sid] = StateAuthenticated
	o.mu.Unlock()
	return user, StateAuthenticated
}

// EnsureFresh is Resume plus expiry handling for authenticated API calls:
// an expired access token triggers exactly one silent refresh; refresh
// failure degrades to logged-out.
func (o *Orchestrator) EnsureFresh(ctx context.Context, sid string) (*session.UserInfo, error) {
	if sid == "" {
		return nil, ErrNotAuthenticated
	}

	rec, ok := o.store.Load(ctx, sid)
	if !ok {
		// No durable record: only an in-memory offline session can stand in.
		o.mu.Lock()
		u := o.users[sid]
		o.mu.Unlock()
		if u != nil && u.Offline {
			return u, nil
		}
		return nil, ErrNotAuthenticated
	}

	if !rec.Expired(time.Now()) {
		if user, state := o.Resume(ctx, sid); state == StateAuthenticated {
			return user, nil
		}
		return nil, ErrNotAuthenticated
	}
	return o.Refresh(ctx, sid)
}

// Refresh performs the silent token refresh for a session: a single
// attempt, collapsed across concurrent callers, failing closed. On failure
// the token store is cleared and the session transitions to
// unauthenticated; the orchestrator never leaves a session in loading.
func (o *Orchestrator) Refresh(ctx context.Context, sid string) (*session.UserInfo, error) {
	v, err, _ := o.refreshGroup.Do(sid, func() (any, error) {
		rec, ok := o.store.Load(ctx, sid)
		if !ok {
			return nil, ErrNotAuthenticated
		}
		if rec.Tokens.RefreshToken == "" {
			o.clearSession(ctx, sid)
			return nil, fmt.Errorf("%w: no refresh token", ErrRefreshFailed)
		}

		tokens, err := o.client.RefreshToken(ctx, rec.Tokens.RefreshToken)
		if err != nil {
			o.clearSession(ctx, sid)
			logger.From(ctx).Warn("token refresh failed, session cleared",
				logger.SessionID(sid), logger.Err(err))
			return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}
		if tokens.RefreshToken == "" {
			// Authing rotates refresh tokens but may omit one on refresh.
			tokens.RefreshToken = rec.Tokens.RefreshToken
		}

		user, err := session.Normalize(rec.RawUser, tokens)
		if err != nil {
			o.clearSession(ctx, sid)
			return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}

		o.store.Save(ctx, sid, tokenstore.NewRecord(tokens, rec.RawUser, time.Now()))
		o.transition(sid, user, StateAuthenticated)
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session.UserInfo), nil
}

// Logout clears the token store and in-memory session and notifies
// subscribers. Idempotent: a second call is a no-op. It does not navigate;
// the caller decides where to send the user (see LogoutURL).
func (o *Orchestrator) Logout(ctx context.Context, sid string) {
	if sid == "" {
		return
	}
	o.store.Clear(ctx, sid)

	o.mu.Lock()
	already := o.states[sid] == StateUnauthenticated
	o.mu.Unlock()
	if already {
		return
	}
	o.transition(sid, nil, StateUnauthenticated)
	logger.From(ctx).Info("logged out", logger.SessionID(sid))
}

// LogoutURL builds the provider's end-session URL for callers that also
// want to terminate the Authing session.
func (o *Orchestrator) LogoutURL(postLogoutRedirect string) string {
	return o.client.LogoutURL(postLogoutRedirect)
}

// CurrentUser returns the last-known user for a session, or nil. Pure
// in-memory read, no I/O.
func (o *Orchestrator) CurrentUser(sid string) *session.UserInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.states[sid] != StateAuthenticated {
		return nil
	}
	return o.users[sid]
}

// StateOf returns the current state for a session. Sessions the
// orchestrator has never seen read as unauthenticated.
func (o *Orchestrator) StateOf(sid string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[sid]; ok {
		return s
	}
	return StateUnauthenticated
}

// clearSession removes all traces of a session (store + memory) and
// transitions it to unauthenticated, notifying subscribers.
func (o *Orchestrator) clearSession(ctx context.Context, sid string) {
	o.store.Clear(ctx, sid)
	o.transition(sid, nil, StateUnauthenticated)
}

// transition commits a state change and notifies subscribers synchronously
// in subscription order. Each listener runs isolated: a panic is logged and
// the remaining listeners are still invoked.
func (o *Orchestrator) transition(sid string, user *session.UserInfo, state State) {
	o.mu.Lock()
	if user != nil {
		o.users[sid] = user
	} else {
		delete(o.users, sid)
	}
	o.states[sid] = state
	subs := make([]subscriber, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.L().Error("auth listener panicked",
						logger.SessionID(sid), logger.String("panic", fmt.Sprint(r)))
				}
			}()
			s.fn(sid, user, state)
		}()
	}
}
