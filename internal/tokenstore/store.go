// Package tokenstore persists the per-session token set and raw provider
// user JSON. It is the durable authority on whether a session exists: the
// orchestrator only ever holds transient copies.
//
// Store implementations never surface storage errors to callers. A failed
// read or corrupted payload degrades to "no session" and a failed write is
// logged, so a broken backend logs the user out instead of crashing the
// request path.
package tokenstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wenpaihq/wenpai/internal/authing"
)

// Record is the persisted session payload.
type Record struct {
	Tokens    authing.TokenSet `json:"tokens"`
	RawUser   json.RawMessage  `json:"user"`
	SavedAt   time.Time        `json:"saved_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Expired reports whether the access token has passed its expiry.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Store is the durable session token store.
type Store interface {
	// Save persists the record under the session ID.
	Save(ctx context.Context, sid string, rec *Record)
	// Load returns the record, or (nil, false) when absent, corrupted, or
	// the backend is unavailable.
	Load(ctx context.Context, sid string) (*Record, bool)
	// Clear removes the session. Clearing an absent session is a no-op.
	Clear(ctx context.Context, sid string)
}

// NewRecord assembles a record stamped at now.
func NewRecord(tokens *authing.TokenSet, rawUser json.RawMessage, now time.Time) *Record {
	return &Record{
		Tokens:    *tokens,
		RawUser:   rawUser,
		SavedAt:   now,
		ExpiresAt: tokens.ExpiresAt(now),
	}
}
