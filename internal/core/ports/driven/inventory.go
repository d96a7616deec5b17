package driven

import (
	"context"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// ApprovalInventory answers approval and checksum lookups.
// It is loaded once per run and is read-only afterwards, so it is safe
// for concurrent use.
type ApprovalInventory interface {
	// Lookup finds the entry for name and version. With releasedOnly set,
	// entries not marked released are ignored.
	Lookup(name, version string, releasedOnly bool) (*domain.InventoryEntry, bool)

	// Len returns the number of entries.
	Len() int
}

// InventoryLoader reads an inventory from an external store.
type InventoryLoader interface {
	// Load reads the inventory at path. An empty path yields an empty inventory.
	Load(ctx context.Context, path string) (ApprovalInventory, error)
}
