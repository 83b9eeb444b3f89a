// Package session adapts the connect/disconnect event stream from the
// socket layer into the presence registry.
package session

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/guestgc/internal/presence"
)

// Service receives pushed connection events and forwards them to the
// registry. No business decisions happen here.
type Service struct {
	registry presence.Registry
	log      *zap.Logger
}

// New constructs a session service.
func New(registry presence.Registry, log *zap.Logger) *Service {
	return &Service{registry: registry, log: log}
}

// OnConnect records a new live connection for the account session and
// returns the connection id the caller must use for heartbeats and
// disconnect.
func (s *Service) OnConnect(ctx context.Context, accountID uuid.UUID, sessionID string) (uuid.UUID, error) {
	connID, err := s.registry.Register(ctx, accountID, sessionID)
	if err != nil {
		return uuid.Nil, err
	}
	s.log.Debug("connection registered",
		zap.String("account_id", accountID.String()),
		zap.String("session_id", sessionID),
		zap.String("connection_id", connID.String()))
	return connID, nil
}

// OnDisconnect drops the connection. Safe to call for connections that
// already expired.
func (s *Service) OnDisconnect(ctx context.Context, connectionID uuid.UUID) error {
	if err := s.registry.Unregister(ctx, connectionID); err != nil {
		return err
	}
	s.log.Debug("connection unregistered", zap.String("connection_id", connectionID.String()))
	return nil
}

// OnHeartbeat refreshes the connection's expiry, declaring the client
// still alive.
func (s *Service) OnHeartbeat(ctx context.Context, connectionID uuid.UUID) error {
	return s.registry.Heartbeat(ctx, connectionID)
}
