package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectPostgres opens a pgx pool and verifies connectivity with a ping.
// Caller should call pool.Close() on shutdown.
func ConnectPostgres(ctx context.Context, url string, timeout time.Duration) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables the economy core depends on when they do not
// exist yet. Balances live on the users row so a single conditional UPDATE can
// guard against overdraft; ledger_entries is append-only.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
    id          BIGSERIAL PRIMARY KEY,
    sub         TEXT NOT NULL UNIQUE,
    email       TEXT NOT NULL DEFAULT '',
    name        TEXT NOT NULL DEFAULT '',
    petals      BIGINT NOT NULL DEFAULT 0 CHECK (petals >= 0),
    runes       BIGINT NOT NULL DEFAULT 0 CHECK (runes >= 0),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id          BIGSERIAL PRIMARY KEY,
    user_id     BIGINT NOT NULL REFERENCES users(id),
    currency    TEXT NOT NULL DEFAULT 'petals',
    entry_type  TEXT NOT NULL CHECK (entry_type IN ('earn', 'spend')),
    amount      BIGINT NOT NULL CHECK (amount > 0),
    reason      TEXT NOT NULL,
    metadata    JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ledger_user_created ON ledger_entries (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_ledger_user_reason_created ON ledger_entries (user_id, reason, created_at);
`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
