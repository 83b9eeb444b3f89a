// Package guest implements the guarded creation path for ephemeral guest
// accounts.
package guest

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/guestgc/internal/guard"
	"github.com/and161185/guestgc/internal/lock"
	"github.com/and161185/guestgc/internal/model"
	"github.com/and161185/guestgc/internal/presence"
	"github.com/and161185/guestgc/internal/repository"
)

// Creator creates GUEST accounts under the two-lease lifecycle protocol:
// a construction lease on a handle chosen before the row exists, then a
// first-connection lease on the real id until the client's first
// connection registers. If the client never shows up, the first-connection
// lease expires on its own and the account becomes collectible.
type Creator struct {
	accounts repository.AccountRepository
	guard    *guard.Guard
	registry presence.Registry
	log      *zap.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]*lock.Lease // first-connection leases awaiting release
}

// NewCreator constructs a Creator.
func NewCreator(accounts repository.AccountRepository, g *guard.Guard, registry presence.Registry, log *zap.Logger) *Creator {
	return &Creator{
		accounts: accounts,
		guard:    g,
		registry: registry,
		log:      log,
		pending:  make(map[uuid.UUID]*lock.Lease),
	}
}

// CreateGuest creates a GUEST account. The account stays protected from the
// collector until FirstConnection is called or the first-connection lease
// TTL runs out.
func (c *Creator) CreateGuest(ctx context.Context) (*model.Account, error) {
	handle, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("guest-%s", handle)

	ctorLease, err := c.guard.AcquireConstruction(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("acquire construction lease: %w", err)
	}
	defer func() {
		if rerr := c.guard.Release(ctx, ctorLease); rerr != nil {
			c.log.Debug("release construction lease", zap.Error(rerr))
		}
	}()

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	// Protect the id before the row becomes visible to the collector.
	initLease, err := c.guard.AcquireFirstConnection(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("acquire first-connection lease: %w", err)
	}

	acc := &model.Account{ID: id, Name: name, Role: model.RoleGuest, Status: model.StatusActive}
	if err := c.accounts.Create(ctx, acc); err != nil {
		if rerr := c.guard.Release(ctx, initLease); rerr != nil {
			c.log.Debug("release first-connection lease", zap.Error(rerr))
		}
		return nil, fmt.Errorf("create guest account: %w", err)
	}

	c.mu.Lock()
	c.pending[id] = initLease
	c.mu.Unlock()

	c.log.Info("created guest account", zap.String("account_id", id.String()), zap.String("name", name))
	return acc, nil
}

// FirstConnection registers the client's first connection and lifts the
// first-connection lease.
func (c *Creator) FirstConnection(ctx context.Context, accountID uuid.UUID, sessionID string) (uuid.UUID, error) {
	connID, err := c.registry.Register(ctx, accountID, sessionID)
	if err != nil {
		return uuid.Nil, err
	}

	c.mu.Lock()
	lease := c.pending[accountID]
	delete(c.pending, accountID)
	c.mu.Unlock()

	if lease != nil {
		if rerr := c.guard.Release(ctx, lease); rerr != nil {
			// expired on its own, presence now protects the account
			c.log.Debug("release first-connection lease", zap.Error(rerr))
		}
	}
	return connID, nil
}
