package tokenstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wenpaihq/wenpai/internal/cache"
	"github.com/wenpaihq/wenpai/internal/observability/logger"
)

const keyPrefix = "sess:"

// CacheStore keeps session records in the cache layer (go-cache in dev,
// Redis in prod). The TTL bounds how long an idle session survives.
type CacheStore struct {
	c   cache.Cache
	ttl time.Duration
}

// NewCacheStore builds a cache-backed store with the given session TTL.
func NewCacheStore(c cache.Cache, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &CacheStore{c: c, ttl: ttl}
}

func (s *CacheStore) Save(ctx context.Context, sid string, rec *Record) {
	b, err := json.Marshal(rec)
	if err != nil {
		logger.From(ctx).Warn("token store: marshal failed, session not persisted",
			logger.SessionID(sid), logger.Err(err))
		return
	}
	s.c.Set(keyPrefix+sid, b, s.ttl)
}

func (s *CacheStore) Load(ctx context.Context, sid string) (*Record, bool) {
	b, ok := s.c.Get(keyPrefix + sid)
	if !ok {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		// Corrupted payload reads as logged-out; drop it so the next load
		// is a clean miss.
		logger.From(ctx).Warn("token store: corrupted record dropped",
			logger.SessionID(sid), logger.Err(err))
		s.c.Delete(keyPrefix + sid)
		return nil, false
	}
	if rec.Tokens.AccessToken == "" {
		return nil, false
	}
	return &rec, true
}

func (s *CacheStore) Clear(ctx context.Context, sid string) {
	s.c.Delete(keyPrefix + sid)
}
