package auth

import (
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// stateAudience is the expected audience of login state tokens.
const stateAudience = "wenpai-state"

// StateClaims bind a login attempt to its callback: the session ID the
// tokens will be stored under, the in-app path to return the user to, and
// a nonce.
type StateClaims struct {
	SessionID string
	ReturnTo  string
	Nonce     string
}

// StateSigner signs and validates the OAuth state parameter as a compact
// HS256 JWT, so the callback can trust returnTo and the session binding
// without server-side login-attempt storage.
type StateSigner struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Sign produces the state token for a login attempt.
func (s *StateSigner) Sign(claims StateClaims) (string, error) {
	now := time.Now().UTC()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss":   s.Issuer,
		"aud":   stateAudience,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(s.ttl()).Unix(),
		"sid":   claims.SessionID,
		"ret":   claims.ReturnTo,
		"nonce": claims.Nonce,
	})
	return tok.SignedString(s.Secret)
}

// Parse validates a state token and returns its claims.
// Expiry is checked with a 30s clock-skew grace.
func (s *StateSigner) Parse(tokenString string) (*StateClaims, error) {
	tok, err := jwtv5.Parse(tokenString,
		func(t *jwtv5.Token) (any, error) { return s.Secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithAudience(stateAudience),
		jwtv5.WithIssuer(s.Issuer),
		jwtv5.WithLeeway(30*time.Second),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidState
	}
	mapClaims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidState
	}
	claims := &StateClaims{
		SessionID: getString(mapClaims, "sid"),
		ReturnTo:  getString(mapClaims, "ret"),
		Nonce:     getString(mapClaims, "nonce"),
	}
	if claims.SessionID == "" {
		return nil, ErrInvalidState
	}
	return claims, nil
}

func (s *StateSigner) ttl() time.Duration {
	if s.TTL <= 0 {
		return 10 * time.Minute
	}
	return s.TTL
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
