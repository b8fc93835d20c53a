package session

import (
	"github.com/wenpaihq/wenpai/internal/plan"
)

// UserInfo is the canonical, provider-independent user record. It is an
// immutable snapshot: each refresh replaces the whole value.
type UserInfo struct {
	ID          string    `json:"id"`
	Username    string    `json:"username,omitempty"`
	Nickname    string    `json:"nickname,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	Tier        plan.Tier `json:"tier"`

	// AccessToken and RefreshToken are carried for convenience; the token
	// store owns the authoritative copies.
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`

	// Offline marks a degraded local pseudo-session minted while Authing
	// was unreachable. Offline sessions are never persisted and must not
	// unlock server-trust features.
	Offline bool `json:"offline,omitempty"`
}
