// Package guard implements the two-lease protocol protecting a guest
// account during its vulnerable early life: while the row is being created,
// and from row creation until the first client connection registers.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/guestgc/internal/lock"
)

// Lifecycle keys live in their own key space, distinct from the collector's
// per-account processing locks.
const (
	ctorKeyFormat = "guestguard:ctor:%s"
	initKeyFormat = "guestguard:init:%s"
)

// Guard issues lifecycle leases for the account-creation path and answers
// the collector's "is this account still protected" check.
type Guard struct {
	locks   lock.Service
	ctorTTL time.Duration
	initTTL time.Duration
}

// New constructs a Guard over the given lock service.
func New(locks lock.Service, ctorTTL, initTTL time.Duration) *Guard {
	return &Guard{locks: locks, ctorTTL: ctorTTL, initTTL: initTTL}
}

// AcquireConstruction claims the pre-account handle chosen before the row
// exists. Held only for the duration of account creation.
func (g *Guard) AcquireConstruction(ctx context.Context, handle string) (*lock.Lease, error) {
	return g.locks.Acquire(ctx, fmt.Sprintf(ctorKeyFormat, handle), g.ctorTTL)
}

// AcquireFirstConnection claims the real account id. Held from the moment
// the row exists until the first connection registers, or until the TTL
// runs out if the client never shows up.
func (g *Guard) AcquireFirstConnection(ctx context.Context, accountID uuid.UUID) (*lock.Lease, error) {
	return g.locks.Acquire(ctx, fmt.Sprintf(initKeyFormat, accountID), g.initTTL)
}

// Release frees a lifecycle lease early.
func (g *Guard) Release(ctx context.Context, l *lock.Lease) error {
	return g.locks.Release(ctx, l)
}

// HeldFor reports whether a first-connection lease currently protects
// accountID. The collector treats a protected account as not yet eligible
// for any verdict.
func (g *Guard) HeldFor(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return g.locks.Held(ctx, fmt.Sprintf(initKeyFormat, accountID))
}
