// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across lock/repository/collector layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLockBusy indicates a lease is currently held by another caller.
	// Callers treat it as "someone else is handling this" and skip.
	ErrLockBusy = errors.New("lock busy")

	// ErrConflict indicates a conditional update lost against a concurrent
	// writer (e.g. the owner changed between read and reassign).
	ErrConflict = errors.New("conflict")

	// ErrInvariant indicates stored data violates a structural invariant
	// (e.g. a resource without a resolvable owner). Logged loudly, never
	// auto-repaired.
	ErrInvariant = errors.New("invariant violation")
)
