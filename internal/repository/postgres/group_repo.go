package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/guestgc/internal/errs"
	"github.com/and161185/guestgc/internal/model"
)

// GroupRepo implements GroupRepository using PostgreSQL.
type GroupRepo struct{ db *DB }

// NewGroupRepo constructs a group repository.
func NewGroupRepo(db *DB) *GroupRepo { return &GroupRepo{db: db} }

// Create inserts a new principal group.
func (r *GroupRepo) Create(ctx context.Context, g *model.PrincipalGroup) error {
	const q = `INSERT INTO principal_groups (gid, name) VALUES ($1, $2)`
	_, err := r.db.Pool.Exec(ctx, q, g.GID, g.Name)
	return err
}

// AddMember adds an account to a group. Idempotent.
func (r *GroupRepo) AddMember(ctx context.Context, gid, accountID uuid.UUID) error {
	const q = `
INSERT INTO group_members (gid, account_id) VALUES ($1, $2)
ON CONFLICT (gid, account_id) DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, gid, accountID)
	return err
}

// RemoveMember drops an account from a group.
func (r *GroupRepo) RemoveMember(ctx context.Context, gid, accountID uuid.UUID) error {
	const q = `DELETE FROM group_members WHERE gid=$1 AND account_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, gid, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ExpandGroup lists current member account ids. Read fresh on every call;
// the resolver relies on membership never being cached.
func (r *GroupRepo) ExpandGroup(ctx context.Context, gid uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT account_id FROM group_members WHERE gid=$1 ORDER BY account_id`
	rows, err := r.db.Pool.Query(ctx, q, gid)
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
