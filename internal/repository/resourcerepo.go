package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/guestgc/internal/model"
)

// ResourceRepository manages shared resources and their access rights.
type ResourceRepository interface {
	// Create inserts a new resource.
	Create(ctx context.Context, r *model.Resource) error
	// GetByID loads a resource by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error)
	// ListOwnedBy lists ids of resources owned by an account.
	ListOwnedBy(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error)
	// AccessRights returns the explicit grants on a resource.
	AccessRights(ctx context.Context, resourceID uuid.UUID) (model.AccessRightsMap, error)
	// Grant upserts an explicit grant for a principal.
	Grant(ctx context.Context, resourceID uuid.UUID, p model.Principal, rights model.AccessRights) error
	// Revoke drops a principal's explicit grant.
	Revoke(ctx context.Context, resourceID uuid.UUID, p model.Principal) error
	// ReassignOwner conditionally rewrites the owner field. Returns
	// errs.ErrConflict when the current owner no longer matches
	// expectedOwner, so a concurrent legitimate transfer is never
	// overwritten.
	ReassignOwner(ctx context.Context, resourceID, expectedOwner, newOwner uuid.UUID) error
	// DeleteCascade removes the resource and everything attached to it as
	// one logical operation.
	DeleteCascade(ctx context.Context, resourceID uuid.UUID) error
}
