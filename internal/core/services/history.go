package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// HistoryService browses recorded audit runs.
type HistoryService struct {
	store driven.AuditStore
}

// NewHistoryService creates a history service.
func NewHistoryService(store driven.AuditStore) *HistoryService {
	return &HistoryService{store: store}
}

// List returns up to limit runs, newest first. A limit of 0 lists every run.
func (s *HistoryService) List(ctx context.Context, limit int) ([]domain.AuditRun, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", domain.ErrInvalidInput)
	}
	return s.store.ListRuns(ctx, limit)
}

// Get returns a run with its records.
func (s *HistoryService) Get(ctx context.Context, id string) (*domain.AuditRun, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: run id is required", domain.ErrInvalidInput)
	}
	return s.store.GetRun(ctx, id)
}

// Prune deletes all but the newest keep runs. A failed delete does not
// stop the others; every failure is reported.
func (s *HistoryService) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: negative keep", domain.ErrInvalidInput)
	}
	runs, err := s.store.ListRuns(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("list runs: %w", err)
	}
	if len(runs) <= keep {
		return 0, nil
	}

	removed := 0
	var errs []error
	for _, run := range runs[keep:] {
		if err := s.store.DeleteRun(ctx, run.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete run %s: %w", run.ID, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
