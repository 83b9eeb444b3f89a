// Package presence tracks which accounts currently have live client
// connections. The backing store, not the registering process, is the
// source of truth, so every collector instance observes the same picture.
package presence

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// Registry records live connections per (account, client session). It makes
// no business decisions. Stale entries (a connection that died without
// unregistering) self-heal: their expiry passes once heartbeats stop.
type Registry interface {
	// Register records a new live connection and returns its id.
	Register(ctx context.Context, accountID uuid.UUID, sessionID string) (uuid.UUID, error)
	// Unregister drops a connection. Unregistering an unknown or already
	// expired connection is not an error.
	Unregister(ctx context.Context, connectionID uuid.UUID) error
	// Heartbeat extends the connection's expiry. Returns errs.ErrNotFound
	// once the record expired; the client must reconnect.
	Heartbeat(ctx context.Context, connectionID uuid.UUID) error
	// Connections lists live connection ids for an account. An empty
	// result means no live session.
	Connections(ctx context.Context, accountID uuid.UUID) ([]uuid.UUID, error)
	// SessionConnections lists live connection ids for one client session.
	SessionConnections(ctx context.Context, accountID uuid.UUID, sessionID string) ([]uuid.UUID, error)
	// PurgeExpired removes dead records and reports how many were dropped.
	PurgeExpired(ctx context.Context) (int64, error)
}
