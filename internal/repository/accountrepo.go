// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/guestgc/internal/model"
)

// AccountRepository provides account CRUD plus the collector's candidate query.
type AccountRepository interface {
	// Create inserts a new account.
	Create(ctx context.Context, a *model.Account) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// UpdateRole changes an account's role.
	UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error
	// SetStatus changes an account's lifecycle status.
	SetStatus(ctx context.Context, id uuid.UUID, status model.Status) error
	// ListCollectable returns accounts that are GUEST-or-below (or marked
	// for deletion, or past their hard expiry), have no live connection,
	// and have shown no connection activity since eligibleSince.
	ListCollectable(ctx context.Context, eligibleSince time.Time) ([]uuid.UUID, error)
	// Delete removes the account row and its direct grants on resources.
	// Fails while the account still owns resources.
	Delete(ctx context.Context, id uuid.UUID) error
}
