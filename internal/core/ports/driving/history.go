package driving

import (
	"context"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// HistoryService browses and prunes recorded audit runs.
type HistoryService interface {
	// List returns up to limit runs, newest first, without records.
	List(ctx context.Context, limit int) ([]domain.AuditRun, error)

	// Get returns a run with its records.
	Get(ctx context.Context, id string) (*domain.AuditRun, error)

	// Prune deletes all but the newest keep runs and returns how many were removed.
	Prune(ctx context.Context, keep int) (int, error)
}
