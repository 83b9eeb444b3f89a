// Package lock provides exclusive, named, leased locks with a TTL. It is
// the only cross-instance mutual exclusion primitive in the collector.
package lock

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Lease is a time-bounded exclusive claim on a key. The holder token fences
// Release and Renew against a later holder of the same key.
type Lease struct {
	Key       string
	Token     uuid.UUID
	ExpiresAt time.Time
}

// Service issues leases. Acquire is non-blocking: when the key is already
// leased it returns errs.ErrLockBusy and the caller skips the protected
// work instead of retrying. TTL expiry frees keys held by crashed holders.
type Service interface {
	// Acquire claims key for ttl or fails fast with errs.ErrLockBusy.
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
	// Release frees the lease. Returns errs.ErrNotFound if the lease
	// already expired or was taken over.
	Release(ctx context.Context, l *Lease) error
	// Renew extends a still-held lease by ttl from now. Returns
	// errs.ErrConflict if the lease was lost in the meantime.
	Renew(ctx context.Context, l *Lease, ttl time.Duration) error
	// Held reports whether an unexpired lease exists for key.
	Held(ctx context.Context, key string) (bool, error)
}
