// Package cache provides a small byte-oriented cache abstraction with
// in-process (development) and Redis (production) backends. It backs the
// session token store and the fixed-window rate limiter.
package cache

import "time"

// Cache is the minimal contract the rest of the service depends on.
// Implementations never return errors: a backend failure reads as a miss
// and writes are best-effort. Callers that need stronger guarantees use
// the Postgres session store instead.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind       string // "memory" | "redis"
	RedisAddr  string
	RedisDB    int
	Prefix     string
	DefaultTTL time.Duration
}

// New builds a Cache from config, defaulting to the memory backend.
func New(cfg Config) Cache {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg.RedisAddr, cfg.RedisDB, cfg.Prefix)
	default:
		ttl := cfg.DefaultTTL
		if ttl <= 0 {
			ttl = 30 * time.Minute
		}
		return NewMemory(ttl)
	}
}
