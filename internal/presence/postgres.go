package presence

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/guestgc/internal/errs"
)

// PG is a PostgreSQL-backed presence registry. Rows past their expiry are
// invisible to lookups and removed by PurgeExpired.
type PG struct {
	pool pgxQuerier
	ttl  time.Duration // per-connection expiry, refreshed by Heartbeat
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed registry.
func NewPG(pool *pgxpool.Pool, ttl time.Duration) *PG { return &PG{pool: pool, ttl: ttl} }

// NewPGWithQuerier constructs a registry over any pgx querier (tests).
func NewPGWithQuerier(q pgxQuerier, ttl time.Duration) *PG { return &PG{pool: q, ttl: ttl} }

// Register records a new live connection.
func (r *PG) Register(ctx context.Context, accountID uuid.UUID, sessionID string) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	const q = `
INSERT INTO connection_records (id, account_id, session_id, established_at, expires_at)
VALUES ($1, $2, $3, now(), $4)`
	if _, err := r.pool.Exec(ctx, q, id, accountID, sessionID, time.Now().Add(r.ttl)); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Unregister drops a connection record. Idempotent.
func (r *PG) Unregister(ctx context.Context, connectionID uuid.UUID) error {
	const q = `DELETE FROM connection_records WHERE id=$1`
	_, err := r.pool.Exec(ctx, q, connectionID)
	return err
}

// Heartbeat pushes the connection's expiry forward.
func (r *PG) Heartbeat(ctx context.Context, connectionID uuid.UUID) error {
	const q = `UPDATE connection_records SET expires_at=$2 WHERE id=$1 AND expires_at > now()`
	tag, err := r.pool.Exec(ctx, q, connectionID, time.Now().Add(r.ttl))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Connections lists live connection ids for an account.
func (r *PG) Connections(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT id FROM connection_records WHERE account_id=$1 AND expires_at > now() ORDER BY id`
	rows, err := r.pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// SessionConnections lists live connection ids for one client session.
func (r *PG) SessionConnections(ctx context.Context, accountID uuid.UUID, sessionID string) ([]uuid.UUID, error) {
	const q = `
SELECT id FROM connection_records
WHERE account_id=$1 AND session_id=$2 AND expires_at > now() ORDER BY id`
	rows, err := r.pool.Query(ctx, q, accountID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

// PurgeExpired removes dead records.
func (r *PG) PurgeExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM connection_records WHERE expires_at <= now()`
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ Registry = (*PG)(nil)
