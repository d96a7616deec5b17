package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// mockRuleChecker implements driven.RuleChecker.
type mockRuleChecker struct{ mock.Mock }

func (m *mockRuleChecker) Check(ctx context.Context, schema *domain.ResolvedSchema, refs []*domain.ResolvedSchema) ([]domain.Diagnostic, error) {
	args := m.Called(ctx, schema, refs)
	diags, _ := args.Get(0).([]domain.Diagnostic)
	return diags, args.Error(1)
}

// mockComparer implements driven.SchemaComparer.
type mockComparer struct{ mock.Mock }

func (m *mockComparer) Compare(ctx context.Context, a, b *domain.ResolvedSchema, refPathsA, refPathsB []string) ([]domain.CompareEntry, error) {
	args := m.Called(ctx, a, b, refPathsA, refPathsB)
	entries, _ := args.Get(0).([]domain.CompareEntry)
	return entries, args.Error(1)
}

// mockChecksum implements driven.ChecksumTool.
type mockChecksum struct{ mock.Mock }

func (m *mockChecksum) Hash(ctx context.Context, schemaPath string, refPaths []string, includeSelfPath bool) (string, error) {
	args := m.Called(ctx, schemaPath, refPaths, includeSelfPath)
	return args.String(0), args.Error(1)
}

// panickingRules panics on every call.
type panickingRules struct{}

func (panickingRules) Check(context.Context, *domain.ResolvedSchema, []*domain.ResolvedSchema) ([]domain.Diagnostic, error) {
	panic("rule engine crashed")
}

// panickingInventory panics on every lookup.
type panickingInventory struct{}

func (panickingInventory) Lookup(string, string, bool) (*domain.InventoryEntry, bool) {
	panic("inventory index corrupt")
}

func (panickingInventory) Len() int { return 1 }

// recordingMetrics implements driven.MetricsRecorder.
type recordingMetrics struct {
	mu      sync.Mutex
	records int
	stages  map[domain.Stage]int
	runs    []domain.AuditSummary
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{stages: make(map[domain.Stage]int)}
}

func (m *recordingMetrics) ObserveRecord(*domain.SchemaAuditRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records++
}

func (m *recordingMetrics) ObserveStage(stage domain.Stage, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages[stage]++
}

func (m *recordingMetrics) ObserveRun(summary *domain.AuditSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *summary)
}

// recordingReports implements driven.ReportWriter.
type recordingReports struct {
	dir       string
	records   []string
	summaries int
	err       error
}

func (r *recordingReports) WriteRecord(outputDir string, _ *domain.AuditRun, record *domain.SchemaAuditRecord) error {
	r.dir = outputDir
	r.records = append(r.records, record.Key())
	return r.err
}

func (r *recordingReports) WriteSummary(outputDir string, _ *domain.AuditRun) error {
	r.dir = outputDir
	r.summaries++
	return r.err
}

var (
	_ driven.RuleChecker     = (*mockRuleChecker)(nil)
	_ driven.SchemaComparer  = (*mockComparer)(nil)
	_ driven.ChecksumTool    = (*mockChecksum)(nil)
	_ driven.MetricsRecorder = (*recordingMetrics)(nil)
	_ driven.ReportWriter    = (*recordingReports)(nil)
)
