package authing

import "fmt"

// TokenExchangeError is returned when the token endpoint answers non-2xx.
// Body carries the raw provider error for diagnostics; it is logged, never
// shown to end users.
type TokenExchangeError struct {
	Status int
	Body   string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("authing: token exchange failed with status %d: %s", e.Status, e.Body)
}

// UserInfoFetchError is returned when the userinfo endpoint answers non-2xx.
type UserInfoFetchError struct {
	Status int
	Body   string
}

func (e *UserInfoFetchError) Error() string {
	return fmt.Sprintf("authing: userinfo fetch failed with status %d: %s", e.Status, e.Body)
}
