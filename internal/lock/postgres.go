package lock

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/guestgc/internal/errs"
)

// PG is a PostgreSQL-backed lock service. Leases live in a single table;
// an expired row counts as free, so a crashed holder never wedges a key.
type PG struct {
	pool pgxQuerier
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed lock service.
func NewPG(pool *pgxpool.Pool) *PG { return &PG{pool: pool} }

// NewPGWithQuerier constructs a lock service over any pgx querier (tests).
func NewPGWithQuerier(q pgxQuerier) *PG { return &PG{pool: q} }

// Acquire claims key until expiry. The upsert only wins when no row exists
// or the existing row expired; otherwise no row comes back and the key is
// busy.
func (s *PG) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	token, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(ttl)

	const q = `
INSERT INTO leases (key, holder_token, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE
SET holder_token = EXCLUDED.holder_token, expires_at = EXCLUDED.expires_at
WHERE leases.expires_at <= now()
RETURNING expires_at`
	var exp time.Time
	err = s.pool.QueryRow(ctx, q, key, token, expiresAt).Scan(&exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrLockBusy
	}
	if err != nil {
		return nil, err
	}
	return &Lease{Key: key, Token: token, ExpiresAt: exp}, nil
}

// Release deletes the lease row if the caller still holds it.
func (s *PG) Release(ctx context.Context, l *Lease) error {
	const q = `DELETE FROM leases WHERE key=$1 AND holder_token=$2`
	tag, err := s.pool.Exec(ctx, q, l.Key, l.Token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Renew extends the lease if the caller still holds it unexpired.
func (s *PG) Renew(ctx context.Context, l *Lease, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl)
	const q = `
UPDATE leases SET expires_at=$3
WHERE key=$1 AND holder_token=$2 AND expires_at > now()`
	tag, err := s.pool.Exec(ctx, q, l.Key, l.Token, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrConflict
	}
	l.ExpiresAt = expiresAt
	return nil
}

// Held reports whether an unexpired lease exists for key.
func (s *PG) Held(ctx context.Context, key string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM leases WHERE key=$1 AND expires_at > now())`
	var held bool
	if err := s.pool.QueryRow(ctx, q, key).Scan(&held); err != nil {
		return false, err
	}
	return held, nil
}
