// Package resolve selects a successor owner for a resource whose current
// owner is being removed.
package resolve

import (
	"bytes"
	"context"
	"sort"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/guestgc/internal/model"
)

// GroupExpander lists current members of a principal group. Membership is
// read fresh at resolution time, never cached; it may have changed since
// the resource was shared.
type GroupExpander interface {
	ExpandGroup(ctx context.Context, gid uuid.UUID) ([]uuid.UUID, error)
}

// Verdict is the outcome of a resolution: a successor owner, or deletion
// when no write-capable principal remains.
type Verdict struct {
	NewOwner uuid.UUID
	Delete   bool
}

// NewOwner expands rights into the flat set of write-capable accounts
// (direct grants as-is, group grants through expander), drops departing,
// and picks the smallest account id. The total order makes repeated
// invocations over the same inputs idempotent, so a retry after a partial
// failure lands on the same successor.
func NewOwner(ctx context.Context, expander GroupExpander, rights model.AccessRightsMap, departing uuid.UUID) (Verdict, error) {
	seen := make(map[uuid.UUID]struct{})
	for principal, ar := range rights {
		if !ar.Write {
			continue
		}
		switch principal.Kind {
		case model.KindAccount:
			seen[principal.ID] = struct{}{}
		case model.KindGroup:
			members, err := expander.ExpandGroup(ctx, principal.ID)
			if err != nil {
				return Verdict{}, err
			}
			for _, id := range members {
				seen[id] = struct{}{}
			}
		}
	}
	// A redundant write grant on the departing owner cannot make it its
	// own successor.
	delete(seen, departing)

	if len(seen) == 0 {
		return Verdict{Delete: true}, nil
	}
	candidates := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		candidates = append(candidates, id)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return bytes.Compare(candidates[i].Bytes(), candidates[j].Bytes()) < 0
	})
	return Verdict{NewOwner: candidates[0]}, nil
}
