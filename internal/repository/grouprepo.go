package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/guestgc/internal/model"
)

// GroupRepository manages principal groups and their membership.
type GroupRepository interface {
	// Create inserts a new principal group.
	Create(ctx context.Context, g *model.PrincipalGroup) error
	// AddMember adds an account to a group. Idempotent.
	AddMember(ctx context.Context, gid, accountID uuid.UUID) error
	// RemoveMember drops an account from a group.
	RemoveMember(ctx context.Context, gid, accountID uuid.UUID) error
	// ExpandGroup lists current member account ids.
	ExpandGroup(ctx context.Context, gid uuid.UUID) ([]uuid.UUID, error)
}
