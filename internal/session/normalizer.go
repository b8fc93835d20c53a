// Package session maps Authing's userinfo shape into the application's
// canonical UserInfo record. All duck-typed field fallbacks live here, in
// exactly one place.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wenpaihq/wenpai/internal/authing"
	"github.com/wenpaihq/wenpai/internal/plan"
)

// ErrUnnormalizableUser means the provider profile carried no usable
// identity field at all. The orchestrator treats it as a callback failure.
var ErrUnnormalizableUser = errors.New("session: provider user has no identity field")

// identity field candidates, in priority order. Authing's OIDC userinfo
// uses sub; older REST payloads seen in production use id/userId/user_id.
var idKeys = []string{"sub", "id", "userId", "user_id"}

// Normalize shapes a raw provider userinfo document plus the token set into
// the canonical UserInfo. It never panics; missing optional fields fall back
// (nickname → username → email → generated placeholder) and a document with
// no identity field fails with ErrUnnormalizableUser.
func Normalize(raw json.RawMessage, tokens *authing.TokenSet) (*UserInfo, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return nil, ErrUnnormalizableUser
	}

	id := firstString(doc, idKeys...)
	if id == "" {
		// Last resort before giving up: an email still identifies the user.
		id = firstString(doc, "email")
	}
	if id == "" {
		return nil, ErrUnnormalizableUser
	}

	u := &UserInfo{
		ID:          id,
		Username:    firstString(doc, "username", "preferred_username", "login"),
		Email:       firstString(doc, "email"),
		Phone:       firstString(doc, "phone_number", "phone"),
		Avatar:      firstString(doc, "picture", "photo", "avatar"),
		Roles:       stringSlice(doc["roles"]),
		Permissions: stringSlice(doc["permissions"]),
		Tier:        extractTier(doc),
	}

	u.Nickname = firstString(doc, "nickname", "name")
	if u.Nickname == "" {
		u.Nickname = u.Username
	}
	if u.Nickname == "" {
		u.Nickname = u.Email
	}
	if u.Nickname == "" {
		u.Nickname = placeholderName(id)
	}

	if tokens != nil {
		u.AccessToken = tokens.AccessToken
		u.RefreshToken = tokens.RefreshToken
	}
	return u, nil
}

// extractTier reads the subscription tier from the places Authing custom
// data has carried it: a nested subscription object, app metadata, or a
// flat plan field. Absent or unknown values default to trial.
func extractTier(doc map[string]any) plan.Tier {
	if sub, ok := doc["subscription"].(map[string]any); ok {
		if s, ok := sub["tier"].(string); ok {
			return plan.ParseTier(s)
		}
	}
	if meta, ok := doc["app_metadata"].(map[string]any); ok {
		if s, ok := meta["plan"].(string); ok {
			return plan.ParseTier(s)
		}
	}
	return plan.ParseTier(firstString(doc, "plan", "tier"))
}

func placeholderName(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("用户%s", short)
}

func firstString(doc map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
