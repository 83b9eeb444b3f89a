package lock

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/guestgc/internal/errs"
)

// Memory is an in-process lock service with the same lease semantics as PG.
// Suitable for tests and single-node deployments; it cannot coordinate
// across processes.
type Memory struct {
	mu     sync.Mutex
	leases map[string]Lease
	now    func() time.Time // swappable in tests
}

// NewMemory constructs an in-memory lock service.
func NewMemory() *Memory {
	return &Memory{leases: make(map[string]Lease), now: time.Now}
}

// Acquire claims key for ttl or fails fast with errs.ErrLockBusy.
func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (*Lease, error) {
	token, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if cur, ok := m.leases[key]; ok && cur.ExpiresAt.After(now) {
		return nil, errs.ErrLockBusy
	}
	l := Lease{Key: key, Token: token, ExpiresAt: now.Add(ttl)}
	m.leases[key] = l
	return &l, nil
}

// Release frees the lease if the caller still holds it.
func (m *Memory) Release(_ context.Context, l *Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.leases[l.Key]
	if !ok || cur.Token != l.Token {
		return errs.ErrNotFound
	}
	delete(m.leases, l.Key)
	return nil
}

// Renew extends the lease if the caller still holds it unexpired.
func (m *Memory) Renew(_ context.Context, l *Lease, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.leases[l.Key]
	if !ok || cur.Token != l.Token || !cur.ExpiresAt.After(m.now()) {
		return errs.ErrConflict
	}
	cur.ExpiresAt = m.now().Add(ttl)
	m.leases[l.Key] = cur
	l.ExpiresAt = cur.ExpiresAt
	return nil
}

// Held reports whether an unexpired lease exists for key.
func (m *Memory) Held(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.leases[key]
	return ok && cur.ExpiresAt.After(m.now()), nil
}

var _ Service = (*Memory)(nil)
var _ Service = (*PG)(nil)
