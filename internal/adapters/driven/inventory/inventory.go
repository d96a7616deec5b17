// Package inventory loads the schema approval inventory from JSON or YAML.
//
// The inventory is keyed by schema name. Each name holds a list of
// versioned entries:
//
//	{ "AecUnits": [ { "name": "AecUnits", "version": "01.00.03", "released": true,
//	   "sha1": "…", "approved": "Yes", "verified": "Yes" } ] }
//
// A flat list of entries is accepted as well.
package inventory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// Ensure the adapters implement the interfaces.
var (
	_ driven.ApprovalInventory = (*Inventory)(nil)
	_ driven.InventoryLoader   = (*Loader)(nil)
)

// Inventory is an immutable, indexed set of entries.
type Inventory struct {
	byName map[string][]domain.InventoryEntry
	count  int
}

// New indexes entries. Entries with an empty name are dropped.
func New(entries []domain.InventoryEntry) *Inventory {
	inv := &Inventory{byName: make(map[string][]domain.InventoryEntry)}
	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name == "" {
			continue
		}
		inv.byName[name] = append(inv.byName[name], e)
		inv.count++
	}
	return inv
}

// Lookup implements driven.ApprovalInventory. Names compare case-insensitively
// and versions compare by value, so "1.0.3", "01.00.03" and "01.03" are equal.
// When several entries match, a released one is preferred.
func (inv *Inventory) Lookup(name, version string, releasedOnly bool) (*domain.InventoryEntry, bool) {
	want, err := domain.ParseVersion(version)
	if err != nil {
		return nil, false
	}

	var found *domain.InventoryEntry
	for _, e := range inv.byName[strings.ToLower(strings.TrimSpace(name))] {
		if releasedOnly && !e.Released {
			continue
		}
		got, err := domain.ParseVersion(e.Version)
		if err != nil || got != want {
			continue
		}
		if found == nil || (!found.Released && e.Released) {
			entry := e
			found = &entry
		}
	}
	return found, found != nil
}

// Len implements driven.ApprovalInventory.
func (inv *Inventory) Len() int {
	return inv.count
}

// Loader reads inventory files.
type Loader struct {
	readFile func(string) ([]byte, error)
}

// NewLoader creates a loader reading from disk.
func NewLoader() *Loader {
	return &Loader{readFile: os.ReadFile}
}

// Load implements driven.InventoryLoader. The format follows the file
// extension: .yaml and .yml are YAML, anything else is JSON.
func (l *Loader) Load(ctx context.Context, path string) (driven.ApprovalInventory, error) {
	if path == "" {
		return New(nil), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := l.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	var entries []domain.InventoryEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err = decodeYAML(data)
	default:
		entries, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	return New(entries), nil
}
