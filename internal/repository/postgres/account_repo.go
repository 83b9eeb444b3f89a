package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/guestgc/internal/errs"
	"github.com/and161185/guestgc/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new account row.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, name, role, status, expires_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.Name, int16(a.Role), string(a.Status), a.ExpiresAt)
	return err
}

// GetByID selects an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const q = `
SELECT id, name, role, status, expires_at, created_at
FROM accounts WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var (
		a      model.Account
		role   int16
		status string
	)
	if err := row.Scan(&a.ID, &a.Name, &role, &status, &a.ExpiresAt, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	a.Role = model.Role(role)
	a.Status = model.Status(status)
	return &a, nil
}

// UpdateRole changes an account's role.
func (r *AccountRepo) UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error {
	const q = `UPDATE accounts SET role=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, int16(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetStatus changes an account's lifecycle status.
func (r *AccountRepo) SetStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	const q = `UPDATE accounts SET status=$2 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListCollectable enumerates removal candidates: guests (or accounts marked
// for deletion, or past their hard expiry) with zero live connections whose
// latest connection activity, if any, predates eligibleSince. Accounts that
// never connected qualify only once their creation predates eligibleSince,
// which absorbs reconnect races after a tab refresh.
func (r *AccountRepo) ListCollectable(ctx context.Context, eligibleSince time.Time) ([]uuid.UUID, error) {
	const q = `
SELECT a.id
FROM accounts a
LEFT JOIN connection_records c ON c.account_id = a.id
WHERE a.role <= $1
   OR a.status = $2
   OR (a.expires_at IS NOT NULL AND a.expires_at <= now())
GROUP BY a.id, a.created_at
HAVING count(*) FILTER (WHERE c.expires_at > now()) = 0
   AND greatest(coalesce(max(c.expires_at), a.created_at), a.created_at) <= $3
ORDER BY a.id`
	rows, err := r.db.Pool.Query(ctx, q, int16(model.RoleGuest), string(model.StatusMarkedForDeletion), eligibleSince)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

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

// Delete removes an account row together with its direct grants on other
// resources; grants carry no foreign key (principal_id is polymorphic), so a
// stale one could otherwise elect a dead account as a successor owner. Group
// membership cascades via its own foreign key. The owner foreign key on
// resources blocks deletion while the account still owns anything.
func (r *AccountRepo) Delete(ctx context.Context, id uuid.UUID) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const delGrants = `DELETE FROM access_rights WHERE principal_kind='account' AND principal_id=$1`
	if _, err = tx.Exec(ctx, delGrants, id); err != nil {
		return err
	}
	const delAccount = `DELETE FROM accounts WHERE id=$1`
	tag, err := tx.Exec(ctx, delAccount, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
