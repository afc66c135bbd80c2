package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG keeps attempt counters in the login_attempts table.
type PG struct {
	pool querier
	p    Params
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter over any pgx pool.
func NewPG(pool querier, p Params) *PG { return &PG{pool: pool, p: p} }

// Allow implements Limiter.
func (l *PG) Allow(ctx context.Context, handle string, client []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM login_attempts WHERE handle=$1 AND client_hash=$2`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, handle, client).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	case err != nil:
		return false, 0, err
	}
	if wait := time.Until(blockedUntil); wait > 0 {
		return false, wait, nil
	}
	return true, 0, nil
}

// Success implements Limiter.
func (l *PG) Success(ctx context.Context, handle string, client []byte) error {
	const q = `DELETE FROM login_attempts WHERE handle=$1 AND client_hash=$2`
	_, err := l.pool.Exec(ctx, q, handle, client)
	return err
}

// Failure counts the attempt and sets the block in the same statement once
// the threshold is reached inside the window.
func (l *PG) Failure(ctx context.Context, handle string, client []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO login_attempts (handle, client_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', now())
ON CONFLICT (handle, client_hash) DO UPDATE
SET fail_count = CASE WHEN now() - login_attempts.updated_at > $3::interval THEN 1
                      ELSE login_attempts.fail_count + 1 END,
    updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.pool.QueryRow(ctx, q, handle, client, l.p.Window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.p.MaxFails {
		return false, 0, nil
	}
	const upd = `UPDATE login_attempts SET blocked_until = now() + $3::interval WHERE handle=$1 AND client_hash=$2`
	if _, err := l.pool.Exec(ctx, upd, handle, client, l.p.BlockFor); err != nil {
		return false, 0, err
	}
	return true, l.p.BlockFor, nil
}
