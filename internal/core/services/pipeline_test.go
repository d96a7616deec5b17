package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ecaudit/internal/adapters/driven/inventory"
	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

const dynamicBody = `    <ECCustomAttributes>
        <DynamicSchema xmlns="CoreCustomAttributes.01.00.03"/>
    </ECCustomAttributes>
`

// pipelineFixture is a schema under audit plus a released baseline.
type pipelineFixture struct {
	released     string
	schema       *domain.ResolvedSchema
	refs         []*domain.ResolvedSchema
	baselinePath string

	rules    *mockRuleChecker
	comparer *mockComparer
	checksum *mockChecksum
	metrics  *recordingMetrics
}

func newPipelineFixture(t *testing.T, withBaseline bool, body string) *pipelineFixture {
	t.Helper()
	root := t.TempDir()
	work := filepath.Join(root, "work")
	released := filepath.Join(root, "released")

	writeSchema(t, work, "Formats.01.00.00.ecschema.xml", schemaXML("Formats", "01.00.00", "f", ""))
	path := writeSchema(t, work, "AecUnits.01.00.03.ecschema.xml",
		schemaXML("AecUnits", "01.00.03", "AECU", body, ref("Formats", "01.00.00", "f")))
	writeSchema(t, released, "Formats.01.00.00.ecschema.xml", schemaXML("Formats", "01.00.00", "f", ""))

	f := &pipelineFixture{
		released: released,
		rules:    &mockRuleChecker{},
		comparer: &mockComparer{},
		checksum: &mockChecksum{},
		metrics:  newRecordingMetrics(),
	}
	if withBaseline {
		f.baselinePath = writeSchema(t, released, "AecUnits.01.00.02.ecschema.xml",
			schemaXML("AecUnits", "01.00.02", "AECU", "", ref("Formats", "01.00.00", "f")))
	}

	order, err := newTestResolver().ResolveFile(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, order, 2)
	f.schema, f.refs = order[1], order[:1]
	return f
}

func (f *pipelineFixture) pipeline(inv driven.ApprovalInventory) *Pipeline {
	resolver := newTestResolver()
	return NewPipeline(f.rules, f.comparer, f.checksum, inv, resolver.locater, resolver, f.metrics, PipelineConfig{
		ReleasedDirs: []string{f.released},
	})
}

func approvedEntry(checksum string) domain.InventoryEntry {
	return domain.InventoryEntry{
		Name: "AecUnits", Version: "01.00.03", Released: true,
		Approved: true, Verified: true, Checksum: checksum,
	}
}

func messageOnly() []domain.CompareEntry {
	return []domain.CompareEntry{{Kind: domain.EntryMessage, Message: "compared"}}
}

func TestClassifyDiagnostics(t *testing.T) {
	tests := []struct {
		name  string
		diags []domain.Diagnostic
		want  domain.StageResult
	}{
		{"no diagnostics", nil, domain.ResultPassed},
		{"warnings only", []domain.Diagnostic{{Severity: domain.SeverityWarning, Message: "legacy"}}, domain.ResultPassed},
		{"error", []domain.Diagnostic{{Severity: domain.SeverityError, Message: "bad name"}}, domain.ResultFailed},
		{"unsupported wins over error", []domain.Diagnostic{
			{Severity: domain.SeverityError, Message: "bad name"},
			{Severity: domain.SeverityInfo, Message: "Formats: " + driven.UnsupportedSchemaMarker},
		}, domain.ResultSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyDiagnostics(tt.diags))
		})
	}
}

func TestClassifyEntries(t *testing.T) {
	refDelta := domain.CompareEntry{Kind: domain.EntryDelta, Code: domain.CodeSchemaReferenceVersionDelta}
	itemDelta := domain.CompareEntry{Kind: domain.EntryDelta, Code: "ItemDelta"}

	tests := []struct {
		name    string
		entries []domain.CompareEntry
		want    domain.StageResult
	}{
		{"messages only", messageOnly(), domain.ResultPassed},
		{"reference deltas only", append(messageOnly(), refDelta, refDelta), domain.ResultReferenceOnlyWarning},
		{"semantic delta", []domain.CompareEntry{refDelta, itemDelta}, domain.ResultFailed},
		{"error entry", []domain.CompareEntry{itemDelta, {Kind: domain.EntryError, Message: "boom"}}, domain.ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := classifyEntries(tt.entries)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == domain.ResultError, err != nil)
		})
	}
}

func TestPipeline_Run_AllPassed(t *testing.T) {
	f := newPipelineFixture(t, true, "")
	f.rules.On("Check", mock.Anything, f.schema, f.refs).Return(nil, nil)
	f.comparer.On("Compare", mock.Anything, f.schema, mock.Anything, f.schema.ReferencePaths(), mock.Anything).Return(messageOnly(), nil)
	f.checksum.On("Hash", mock.Anything, f.schema.Path, f.schema.ReferencePaths(), false).Return("abc123", nil)

	rec := f.pipeline(inventory.New([]domain.InventoryEntry{approvedEntry("ABC123")})).Run(context.Background(), f.schema, f.refs)

	assert.Equal(t, "AecUnits", rec.Name)
	assert.Equal(t, "01.00.03", rec.Version)
	assert.Equal(t, domain.ResultPassed, rec.RuleStage)
	assert.Equal(t, domain.ResultPassed, rec.CompareStage)
	assert.Equal(t, domain.ResultPassed, rec.ChecksumStage)
	assert.Equal(t, domain.ResultPassed, rec.ApprovalStage)
	assert.False(t, rec.ChecksumException)
	assert.Equal(t, f.baselinePath, rec.BaselinePath)
	assert.Equal(t, "abc123", rec.ComputedChecksum)
	assert.NoError(t, rec.Validate())
	assert.Len(t, f.metrics.stages, 4)
	f.rules.AssertExpectations(t)
	f.comparer.AssertExpectations(t)
	f.checksum.AssertExpectations(t)
}

func TestPipeline_Run_NoBaseline(t *testing.T) {
	f := newPipelineFixture(t, false, "")
	f.rules.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.checksum.On("Hash", mock.Anything, mock.Anything, mock.Anything, false).Return("abc", nil)

	rec := f.pipeline(inventory.New(nil)).Run(context.Background(), f.schema, f.refs)

	assert.Equal(t, domain.ResultNotFound, rec.CompareStage)
	assert.Equal(t, domain.ResultFailed, rec.ChecksumStage, "no recorded checksum")
	assert.Equal(t, domain.ResultFailed, rec.ApprovalStage, "no inventory entry")
	assert.Empty(t, rec.BaselinePath)
	f.comparer.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_Run_DynamicSchema(t *testing.T) {
	f := newPipelineFixture(t, true, dynamicBody)
	require.True(t, f.schema.Dynamic)
	f.rules.On("Check", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.Diagnostic{{Severity: domain.SeverityError, Message: "bad"}}, nil)

	rec := f.pipeline(inventory.New(nil)).Run(context.Background(), f.schema, f.refs)

	assert.True(t, rec.Dynamic)
	assert.Equal(t, domain.ResultFailed, rec.RuleStage)
	assert.Equal(t, domain.ResultSkipped, rec.CompareStage)
	assert.Equal(t, domain.ResultSkipped, rec.ChecksumStage)
	assert.Equal(t, domain.ResultSkipped, rec.ApprovalStage)
	assert.NoError(t, rec.Validate())
	f.comparer.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.checksum.AssertNotCalled(t, "Hash", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_Run_ChecksumException(t *testing.T) {
	refOnly := append(messageOnly(), domain.CompareEntry{Kind: domain.EntryDelta, Code: domain.CodeSchemaReferenceDelta})

	t.Run("baseline checksum matches after a clean compare", func(t *testing.T) {
		f := newPipelineFixture(t, true, "")
		f.rules.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		f.comparer.On("Compare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(refOnly, nil)
		f.checksum.On("Hash", mock.Anything, f.schema.Path, mock.Anything, false).Return("reserialized", nil)
		f.checksum.On("Hash", mock.Anything, f.baselinePath, mock.Anything, false).Return("recorded", nil)

		rec := f.pipeline(inventory.New([]domain.InventoryEntry{approvedEntry("recorded")})).Run(context.Background(), f.schema, f.refs)

		assert.Equal(t, domain.ResultReferenceOnlyWarning, rec.CompareStage)
		assert.Equal(t, domain.ResultPassed, rec.ChecksumStage)
		assert.True(t, rec.ChecksumException)
		assert.Equal(t, "recorded", rec.BaselineChecksum)
		assert.Equal(t, "reserialized", rec.ComputedChecksum)
		assert.NoError(t, rec.Validate())
	})

	t.Run("failed compare disables the exception", func(t *testing.T) {
		f := newPipelineFixture(t, true, "")
		f.rules.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		f.comparer.On("Compare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.CompareEntry{{Kind: domain.EntryDelta, Code: "ItemDelta"}}, nil)
		f.checksum.On("Hash", mock.Anything, f.schema.Path, mock.Anything, false).Return("reserialized", nil)

		rec := f.pipeline(inventory.New([]domain.InventoryEntry{approvedEntry("recorded")})).Run(context.Background(), f.schema, f.refs)

		assert.Equal(t, domain.ResultFailed, rec.CompareStage)
		assert.Equal(t, domain.ResultFailed, rec.ChecksumStage)
		assert.False(t, rec.ChecksumException)
		assert.Equal(t, domain.ResultPassed, rec.ApprovalStage)
		f.checksum.AssertNumberOfCalls(t, "Hash", 1)
	})

	t.Run("baseline checksum differs too", func(t *testing.T) {
		f := newPipelineFixture(t, true, "")
		f.rules.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
		f.comparer.On("Compare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(messageOnly(), nil)
		f.checksum.On("Hash", mock.Anything, f.schema.Path, mock.Anything, false).Return("one", nil)
		f.checksum.On("Hash", mock.Anything, f.baselinePath, mock.Anything, false).Return("two", nil)

		rec := f.pipeline(inventory.New([]domain.InventoryEntry{approvedEntry("three")})).Run(context.Background(), f.schema, f.refs)

		assert.Equal(t, domain.ResultFailed, rec.ChecksumStage)
		assert.False(t, rec.ChecksumException)
	})
}

func TestPipeline_Run_ApprovalFallsBackToUnreleasedEntry(t *testing.T) {
	f := newPipelineFixture(t, false, "")
	f.rules.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.checksum.On("Hash", mock.Anything, mock.Anything, mock.Anything, false).Return("abc", nil)

	entry := approvedEntry("abc")
	entry.Released = false
	rec := f.pipeline(inventory.New([]domain.InventoryEntry{entry})).Run(context.Background(), f.schema, f.refs)

	assert.Equal(t, domain.ResultPassed, rec.ChecksumStage)
	assert.Equal(t, domain.ResultPassed, rec.ApprovalStage)

	t.Run("unverified entry fails", func(t *testing.T) {
		entry.Verified = false
		rec := f.pipeline(inventory.New([]domain.InventoryEntry{entry})).Run(context.Background(), f.schema, f.refs)
		assert.Equal(t, domain.ResultFailed, rec.ApprovalStage)
	})
}

func TestPipeline_Run_CollaboratorErrorsDoNotAbort(t *testing.T) {
	f := newPipelineFixture(t, true, "")
	f.rules.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("rule engine offline"))
	f.comparer.On("Compare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("compare failed"))
	f.checksum.On("Hash", mock.Anything, mock.Anything, mock.Anything, false).Return("", errors.New("hash failed"))

	rec := f.pipeline(inventory.New([]domain.InventoryEntry{approvedEntry("abc")})).Run(context.Background(), f.schema, f.refs)

	assert.Equal(t, domain.ResultError, rec.RuleStage)
	assert.Equal(t, domain.ResultError, rec.CompareStage)
	assert.Equal(t, domain.ResultError, rec.ChecksumStage)
	assert.Equal(t, domain.ResultPassed, rec.ApprovalStage)
	assert.Contains(t, rec.StageErrors["rule"], "rule engine offline")
	assert.Contains(t, rec.StageErrors["compare"], "compare failed")
	assert.Contains(t, rec.StageErrors["checksum"], "hash failed")
	assert.False(t, rec.Failed())
}

func TestPipeline_Run_ErrorEntryFromComparer(t *testing.T) {
	f := newPipelineFixture(t, true, "")
	f.rules.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.comparer.On("Compare", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.CompareEntry{{Kind: domain.EntryError, Message: "cannot load baseline"}}, nil)
	f.checksum.On("Hash", mock.Anything, mock.Anything, mock.Anything, false).Return("abc", nil)

	rec := f.pipeline(inventory.New([]domain.InventoryEntry{approvedEntry("abc")})).Run(context.Background(), f.schema, f.refs)

	assert.Equal(t, domain.ResultError, rec.CompareStage)
	assert.Contains(t, rec.StageErrors["compare"], "cannot load baseline")
	assert.Equal(t, domain.ResultPassed, rec.ChecksumStage)
}

func TestPipeline_Run_RecoversPanic(t *testing.T) {
	f := newPipelineFixture(t, false, "")
	f.checksum.On("Hash", mock.Anything, mock.Anything, mock.Anything, false).Return("abc", nil)
	resolver := newTestResolver()
	p := NewPipeline(panickingRules{}, f.comparer, f.checksum, inventory.New(nil), resolver.locater, resolver, nil, PipelineConfig{})

	rec := p.Run(context.Background(), f.schema, f.refs)

	assert.Equal(t, domain.ResultError, rec.RuleStage)
	assert.Contains(t, rec.StageErrors["rule"], "rule engine crashed")
	assert.Equal(t, domain.ResultNotFound, rec.CompareStage)
}

func TestPipeline_Run_RecoversInventoryPanic(t *testing.T) {
	f := newPipelineFixture(t, false, "")
	f.rules.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.checksum.On("Hash", mock.Anything, mock.Anything, mock.Anything, false).Return("abc", nil)

	rec := f.pipeline(panickingInventory{}).Run(context.Background(), f.schema, f.refs)

	assert.Equal(t, domain.ResultPassed, rec.RuleStage)
	assert.Equal(t, domain.ResultError, rec.ChecksumStage)
	assert.Equal(t, domain.ResultError, rec.ApprovalStage)
	assert.Contains(t, rec.StageErrors["checksum"], "inventory index corrupt")
	assert.Contains(t, rec.StageErrors["approval"], "approval stage panicked")
	assert.NoError(t, rec.Validate())
}

func TestGuard(t *testing.T) {
	_, err := guard(domain.StageCompare, func() (int, error) { return 0, errors.New("boom") })
	assert.ErrorIs(t, err, domain.ErrCollaborator)

	got, err := guard(domain.StageCompare, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	_, err = guard(domain.StageChecksum, func() (int, error) { panic("oops") })
	assert.ErrorIs(t, err, domain.ErrCollaborator)
	assert.Contains(t, err.Error(), "checksum stage panicked: oops")
}
