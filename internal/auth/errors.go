package auth

import "errors"

// Sentinel errors returned by the orchestrator. Callers compare with
// errors.Is; provider-level causes (authing.TokenExchangeError etc.) remain
// reachable through errors.As for diagnostics.
var (
	// ErrMissingAuthorizationCode: the callback arrived without a code.
	// The token store is guaranteed untouched.
	ErrMissingAuthorizationCode = errors.New("auth: callback missing authorization code")

	// ErrInvalidState: the state parameter failed signature or expiry
	// validation, so the callback cannot be bound to a login attempt.
	ErrInvalidState = errors.New("auth: invalid or expired state")

	// ErrCallbackExchangeFailed: the provider rejected the code exchange or
	// userinfo fetch, or the network failed. Terminal for the attempt; the
	// orchestrator never retries.
	ErrCallbackExchangeFailed = errors.New("auth: callback exchange failed")

	// ErrNotAuthenticated: the session has no usable credentials.
	ErrNotAuthenticated = errors.New("auth: not authenticated")

	// ErrRefreshFailed: the single silent-refresh attempt failed and the
	// session was cleared.
	ErrRefreshFailed = errors.New("auth: token refresh failed")
)
