package authing

import "time"

// TokenSet is the bundle returned by the token endpoint.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// ExpiresAt computes the absolute expiry from a reference instant.
// A zero expires_in is treated as a one-hour token, Authing's default.
func (t *TokenSet) ExpiresAt(from time.Time) time.Time {
	ttl := t.ExpiresIn
	if ttl <= 0 {
		ttl = 3600
	}
	return from.Add(time.Duration(ttl) * time.Second)
}
