package tokenstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wenpaihq/wenpai/internal/observability/logger"
)

// PostgresStore keeps session records in Postgres for installations that
// want sessions to survive cache flushes. Schema: migrations/0001_sessions.sql.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPostgresStore connects a pgx pool to the sessions table.
func NewPostgresStore(ctx context.Context, dsn string, ttl time.Duration) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &PostgresStore{pool: pool, ttl: ttl}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) Save(ctx context.Context, sid string, rec *Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		logger.From(ctx).Warn("token store: marshal failed, session not persisted",
			logger.SessionID(sid), logger.Err(err))
		return
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO wenpai_sessions (sid, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (sid) DO UPDATE
		SET payload = EXCLUDED.payload,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()`,
		sid, payload, time.Now().Add(s.ttl))
	if err != nil {
		logger.From(ctx).Warn("token store: save failed",
			logger.SessionID(sid), logger.Err(err))
	}
}

func (s *PostgresStore) Load(ctx context.Context, sid string) (*Record, bool) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM wenpai_sessions
		WHERE sid = $1 AND expires_at > now()`, sid).Scan(&payload)
	if err != nil {
		// No row and backend failure read the same: no session.
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		logger.From(ctx).Warn("token store: corrupted record dropped",
			logger.SessionID(sid), logger.Err(err))
		s.Clear(ctx, sid)
		return nil, false
	}
	if rec.Tokens.AccessToken == "" {
		return nil, false
	}
	return &rec, true
}

func (s *PostgresStore) Clear(ctx context.Context, sid string) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM wenpai_sessions WHERE sid = $1`, sid); err != nil {
		logger.From(ctx).Warn("token store: clear failed",
			logger.SessionID(sid), logger.Err(err))
	}
}

// PurgeExpired removes rows past their expiry. Run periodically from main.
func (s *PostgresStore) PurgeExpired(ctx context.Context) int64 {
	tag, err := s.pool.Exec(ctx, `DELETE FROM wenpai_sessions WHERE expires_at <= now()`)
	if err != nil {
		logger.From(ctx).Warn("token store: purge failed", logger.Err(err))
		return 0
	}
	return tag.RowsAffected()
}
