package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// Ensure AuditStore implements the interface.
var _ driven.AuditStore = (*AuditStore)(nil)

// AuditStore is an in-memory implementation of driven.AuditStore.
type AuditStore struct {
	mu   sync.RWMutex
	runs map[string]domain.AuditRun
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{
		runs: make(map[string]domain.AuditRun),
	}
}

// SaveRun stores or replaces a run.
func (s *AuditStore) SaveRun(_ context.Context, run *domain.AuditRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *run
	stored.Records = append([]domain.SchemaAuditRecord(nil), run.Records...)
	s.runs[run.ID] = stored
	return nil
}

// GetRun retrieves a run by ID.
func (s *AuditStore) GetRun(_ context.Context, id string) (*domain.AuditRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	run.Records = append([]domain.SchemaAuditRecord(nil), run.Records...)
	return &run, nil
}

// ListRuns returns runs newest first, without records.
func (s *AuditStore) ListRuns(_ context.Context, limit int) ([]domain.AuditRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditRun, 0, len(s.runs))
	for _, run := range s.runs {
		run.Records = nil
		result = append(result, run)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteRun removes a run.
func (s *AuditStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}
