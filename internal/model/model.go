// Package model defines domain entities shared by the collector, the
// presence registry and the repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role orders account privilege levels. The ordering matters: the collector
// only ever removes accounts at or below RoleGuest.
type Role int16

const (
	RoleAnonymous Role = iota
	RoleGuest
	RoleUser
	RoleTester
	RoleAdmin
)

// String returns the canonical role name.
func (r Role) String() string {
	switch r {
	case RoleAnonymous:
		return "ANONYMOUS"
	case RoleGuest:
		return "GUEST"
	case RoleUser:
		return "USER"
	case RoleTester:
		return "TESTER"
	case RoleAdmin:
		return "ADMIN"
	}
	return "UNKNOWN"
}

// Status is the account lifecycle state.
type Status string

const (
	StatusActive            Status = "active"
	StatusMarkedForDeletion Status = "marked_for_deletion"
)

// Account is a principal stored in the system of record. GUEST accounts are
// created on the fly and reclaimed by the collector once abandoned.
type Account struct {
	ID        uuid.UUID
	Name      string
	Role      Role
	Status    Status
	ExpiresAt *time.Time // optional hard expiry for temporary accounts
	CreatedAt time.Time
}

// PrincipalGroup is a named set of accounts used as a sharing indirection.
type PrincipalGroup struct {
	GID  uuid.UUID
	Name string
}

// PrincipalKind discriminates grantees in an access-rights map.
type PrincipalKind string

const (
	KindAccount PrincipalKind = "account"
	KindGroup   PrincipalKind = "group"
)

// Principal identifies a grantee: a single account or a principal group.
type Principal struct {
	Kind PrincipalKind
	ID   uuid.UUID
}

// AccessRights is one explicit grant on a resource.
type AccessRights struct {
	Read   bool
	Write  bool
	Delete bool
}

// AccessRightsMap lists the explicit grants on a resource. Owner rights are
// implicit and never stored here; the ownership field and the rights map
// are deliberately separate concepts.
type AccessRightsMap map[Principal]AccessRights

// Resource is a shareable unit (e.g. a project). It has exactly one owner
// at any time.
type Resource struct {
	ID        uuid.UUID
	Name      string
	OwnerID   uuid.UUID
	CreatedAt time.Time
}

// ConnectionRecord ties one live client connection to an account session.
// Many records may exist per account (multiple tabs or devices). A record
// whose expiry passed without a heartbeat counts as dead.
type ConnectionRecord struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	SessionID     string
	EstablishedAt time.Time
	ExpiresAt     time.Time
}
