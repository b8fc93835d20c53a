package tokenstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/wenpaihq/wenpai/internal/authing"
	"github.com/wenpaihq/wenpai/internal/cache"
)

func newTestStore() *CacheStore {
	return NewCacheStore(cache.NewMemory(time.Hour), time.Hour)
}

func TestCacheStore_RoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tokens := &authing.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600}
	raw := json.RawMessage(`{"sub":"u1","nickname":"测试"}`)
	now := time.Now()

	s.Save(ctx, "sid-1", NewRecord(tokens, raw, now))

	rec, ok := s.Load(ctx, "sid-1")
	if !ok {
		t.Fatal("record not found after save")
	}
	if rec.Tokens.AccessToken != "at" || rec.Tokens.RefreshToken != "rt" {
		t.Fatalf("tokens: %+v", rec.Tokens)
	}
	if string(rec.RawUser) != string(raw) {
		t.Fatalf("raw user: %s", rec.RawUser)
	}
	if rec.Expired(now) {
		t.Fatal("fresh record reads expired")
	}
	if !rec.Expired(now.Add(2 * time.Hour)) {
		t.Fatal("record should expire after expires_in")
	}
}

func TestCacheStore_MissingSession(t *testing.T) {
	s := newTestStore()
	if _, ok := s.Load(context.Background(), "nope"); ok {
		t.Fatal("expected miss")
	}
}

func TestCacheStore_CorruptedPayloadReadsAsMiss(t *testing.T) {
	c := cache.NewMemory(time.Hour)
	s := NewCacheStore(c, time.Hour)
	ctx := context.Background()

	c.Set("sess:sid-bad", []byte("{not json"), time.Hour)

	if _, ok := s.Load(ctx, "sid-bad"); ok {
		t.Fatal("corrupted record must read as no session")
	}
	// The bad entry is dropped so the next read is a clean miss.
	if _, ok := c.Get("sess:sid-bad"); ok {
		t.Fatal("corrupted record not dropped")
	}
}

func TestCacheStore_EmptyAccessTokenReadsAsMiss(t *testing.T) {
	c := cache.NewMemory(time.Hour)
	s := NewCacheStore(c, time.Hour)

	c.Set("sess:sid-empty", []byte(`{"tokens":{"access_token":""}}`), time.Hour)
	if _, ok := s.Load(context.Background(), "sid-empty"); ok {
		t.Fatal("record without access token must read as no session")
	}
}

func TestCacheStore_Clear(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	s.Save(ctx, "sid-c", NewRecord(&authing.TokenSet{AccessToken: "at"}, json.RawMessage(`{}`), time.Now()))
	s.Clear(ctx, "sid-c")
	if _, ok := s.Load(ctx, "sid-c"); ok {
		t.Fatal("record survived clear")
	}
	// Clearing an absent session is a no-op.
	s.Clear(ctx, "sid-c")
}

func TestRecord_ZeroExpiryDefaultsToAnHour(t *testing.T) {
	now := time.Now()
	rec := NewRecord(&authing.TokenSet{AccessToken: "at"}, nil, now)
	if rec.Expired(now.Add(59 * time.Minute)) {
		t.Fatal("expired before the one-hour default")
	}
	if !rec.Expired(now.Add(61 * time.Minute)) {
		t.Fatal("not expired after the one-hour default")
	}
}
