// Package authz delegates permission checks to an external policy layer and
// maps denials to the shared permission-denied kind. Enforcement logic itself
// lives outside this system.
package authz

import (
	"context"

	"github.com/meridian-wms/meridian/internal/shared"
)

// Permissions guarding the operation surface.
const (
	PermLedgerView   = "ledger.view"
	PermLedgerEdit   = "ledger.edit"
	PermSnapshotView = "snapshot.view"
	PermCountingEdit = "counting.edit"
)

// Policy answers whether an actor holds a permission.
type Policy interface {
	Allowed(ctx context.Context, actor shared.Actor, permission string) (bool, error)
}

// AllowAllPolicy grants everything; the default when no external policy layer
// is wired in.
type AllowAllPolicy struct{}

// Allowed always grants.
func (AllowAllPolicy) Allowed(context.Context, shared.Actor, string) (bool, error) {
	return true, nil
}

// StaticPolicy grants permissions from a fixed actor-id table, used in tests
// and single-tenant deployments.
type StaticPolicy struct {
	Grants map[string][]string
}

// Allowed checks the grant table.
func (p StaticPolicy) Allowed(_ context.Context, actor shared.Actor, permission string) (bool, error) {
	for _, granted := range p.Grants[actor.ID] {
		if granted == permission {
			return true, nil
		}
	}
	return false, nil
}
