package driven

import (
	"context"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// AuditStore persists completed audit runs.
type AuditStore interface {
	// SaveRun stores a run with its records.
	SaveRun(ctx context.Context, run *domain.AuditRun) error

	// GetRun retrieves a run with its records.
	// Returns domain.ErrNotFound if the run does not exist.
	GetRun(ctx context.Context, id string) (*domain.AuditRun, error)

	// ListRuns returns up to limit runs, newest first, without records.
	// A limit of zero or less returns every run.
	ListRuns(ctx context.Context, limit int) ([]domain.AuditRun, error)

	// DeleteRun removes a run and its records.
	DeleteRun(ctx context.Context, id string) error
}
