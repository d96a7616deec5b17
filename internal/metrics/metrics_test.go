package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

func TestMetrics_ObserveRecord(t *testing.T) {
	m := NewMetrics()

	m.ObserveRecord(&domain.SchemaAuditRecord{
		RuleStage:         domain.ResultPassed,
		CompareStage:      domain.ResultNotFound,
		ChecksumStage:     domain.ResultPassed,
		ApprovalStage:     domain.ResultFailed,
		ChecksumException: true,
	})
	m.ObserveRecord(&domain.SchemaAuditRecord{
		RuleStage:       domain.ResultError,
		CompareStage:    domain.ResultError,
		ChecksumStage:   domain.ResultError,
		ApprovalStage:   domain.ResultError,
		ResolutionError: "schema not found",
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SchemasAudited))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolutionFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChecksumExceptions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageResults.WithLabelValues("rule", "Passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageResults.WithLabelValues("compare", "NotFound")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageResults.WithLabelValues("approval", "Error")))
	assert.Equal(t, 8, testutil.CollectAndCount(m.StageResults))
}

func TestMetrics_ObserveStage(t *testing.T) {
	m := NewMetrics()

	m.ObserveStage(domain.StageCompare, 20*time.Millisecond)
	m.ObserveStage(domain.StageCompare, 30*time.Millisecond)
	m.ObserveStage(domain.StageRule, time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.StageDuration))
}

func TestMetrics_ObserveRun(t *testing.T) {
	m := NewMetrics()

	failed := domain.NewAuditSummary()
	failed.Total = 3
	failed.Verdict = domain.VerdictFailed
	m.ObserveRun(&failed)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastRunPassed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.LastRunSchemas))

	passed := domain.NewAuditSummary()
	passed.Total = 1
	m.ObserveRun(&passed)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastRunPassed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("Failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("Passed")))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.SchemasAudited.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.SchemasAudited))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SchemasAudited))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveRecord(&domain.SchemaAuditRecord{RuleStage: domain.ResultPassed})
	path := filepath.Join(t.TempDir(), "audit.prom")

	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE ecaudit_stage_results_total counter")
	assert.Contains(t, text, `ecaudit_stage_results_total{result="Passed",stage="rule"} 1`)
	assert.True(t, strings.Contains(text, "ecaudit_schemas_audited_total 1"))

	assert.Error(t, m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "audit.prom")))
}
