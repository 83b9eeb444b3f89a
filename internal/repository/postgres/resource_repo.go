package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/guestgc/internal/errs"
	"github.com/and161185/guestgc/internal/model"
)

// ResourceRepo implements ResourceRepository using PostgreSQL.
type ResourceRepo struct{ db *DB }

// NewResourceRepo constructs a resource repository.
func NewResourceRepo(db *DB) *ResourceRepo { return &ResourceRepo{db: db} }

// Create inserts a new resource row.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	const q = `INSERT INTO resources (id, name, owner_id) VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, res.ID, res.Name, res.OwnerID)
	return err
}

// GetByID selects a resource by ID.
func (r *ResourceRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	const q = `SELECT id, name, owner_id, created_at FROM resources WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var res model.Resource
	if err := row.Scan(&res.ID, &res.Name, &res.OwnerID, &res.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ListOwnedBy lists ids of resources owned by an account.
func (r *ResourceRepo) ListOwnedBy(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT id FROM resources WHERE owner_id=$1 ORDER BY id`
	rows, err := r.db.Pool.Query(ctx, q, accountID)
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

// AccessRights returns the explicit grants on a resource.
func (r *ResourceRepo) AccessRights(ctx context.Context, resourceID uuid.UUID) (model.AccessRightsMap, error) {
	const q = `
SELECT principal_kind, principal_id, can_read, can_write, can_delete
FROM access_rights WHERE resource_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rights := make(model.AccessRightsMap)
	for rows.Next() {
		var (
			kind string
			p    model.Principal
			ar   model.AccessRights
		)
		if err := rows.Scan(&kind, &p.ID, &ar.Read, &ar.Write, &ar.Delete); err != nil {
			return nil, err
		}
		p.Kind = model.PrincipalKind(kind)
		rights[p] = ar
	}
	return rights, rows.Err()
}

// Grant upserts an explicit grant for a principal.
func (r *ResourceRepo) Grant(ctx context.Context, resourceID uuid.UUID, p model.Principal, rights model.AccessRights) error {
	const q = `
INSERT INTO access_rights (resource_id, principal_kind, principal_id, can_read, can_write, can_delete)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (resource_id, principal_kind, principal_id)
DO UPDATE SET can_read=EXCLUDED.can_read, can_write=EXCLUDED.can_write, can_delete=EXCLUDED.can_delete`
	_, err := r.db.Pool.Exec(ctx, q, resourceID, string(p.Kind), p.ID, rights.Read, rights.Write, rights.Delete)
	return err
}

// Revoke drops a principal's explicit grant.
func (r *ResourceRepo) Revoke(ctx context.Context, resourceID uuid.UUID, p model.Principal) error {
	const q = `DELETE FROM access_rights WHERE resource_id=$1 AND principal_kind=$2 AND principal_id=$3`
	tag, err := r.db.Pool.Exec(ctx, q, resourceID, string(p.Kind), p.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ReassignOwner conditionally rewrites the owner field. The WHERE clause is
// the compare-and-swap: a concurrent legitimate transfer makes this a no-op
// reported as errs.ErrConflict.
func (r *ResourceRepo) ReassignOwner(ctx context.Context, resourceID, expectedOwner, newOwner uuid.UUID) error {
	const q = `UPDATE resources SET owner_id=$3 WHERE id=$1 AND owner_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, resourceID, expectedOwner, newOwner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrConflict
	}
	return nil
}

// DeleteCascade removes the resource and its grants in one transaction.
func (r *ResourceRepo) DeleteCascade(ctx context.Context, resourceID uuid.UUID) (err error) {
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

	const delRights = `DELETE FROM access_rights WHERE resource_id=$1`
	if _, err = tx.Exec(ctx, delRights, resourceID); err != nil {
		return err
	}
	const delResource = `DELETE FROM resources WHERE id=$1`
	tag, err := tx.Exec(ctx, delResource, resourceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
