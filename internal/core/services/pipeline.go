package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
	"github.com/custodia-labs/ecaudit/internal/logger"
)

// PipelineConfig holds the per-run inputs of the pipeline.
type PipelineConfig struct {
	// ReleasedDirs are searched for baselines.
	ReleasedDirs []string

	// ReferenceDirs are searched for the references of a baseline.
	ReferenceDirs []string
}

// Pipeline runs the four audit stages for one schema at a time.
// Stages run in fixed order and only communicate through the record.
// A Pipeline holds no per-schema state and may be shared by goroutines.
type Pipeline struct {
	rules     driven.RuleChecker
	comparer  driven.SchemaComparer
	checksum  driven.ChecksumTool
	inventory driven.ApprovalInventory
	locater   *Locater
	resolver  *Resolver
	metrics   driven.MetricsRecorder
	config    PipelineConfig
}

// NewPipeline creates a pipeline. metrics may be nil.
func NewPipeline(
	rules driven.RuleChecker,
	comparer driven.SchemaComparer,
	checksum driven.ChecksumTool,
	inventory driven.ApprovalInventory,
	locater *Locater,
	resolver *Resolver,
	metrics driven.MetricsRecorder,
	config PipelineConfig,
) *Pipeline {
	return &Pipeline{
		rules:     rules,
		comparer:  comparer,
		checksum:  checksum,
		inventory: inventory,
		locater:   locater,
		resolver:  resolver,
		metrics:   metrics,
		config:    config,
	}
}

// stageRun carries what later stages need from earlier ones.
type stageRun struct {
	schema   *domain.ResolvedSchema
	refs     []*domain.ResolvedSchema
	baseline *domain.ResolvedSchema
	record   *domain.SchemaAuditRecord
}

// Run audits schema and returns its record once every stage has settled.
// refs are the schemas schema depends on, in load order.
func (p *Pipeline) Run(ctx context.Context, schema *domain.ResolvedSchema, refs []*domain.ResolvedSchema) domain.SchemaAuditRecord {
	record := domain.SchemaAuditRecord{
		Name:      schema.Key.Name,
		Version:   schema.Key.Version.String(),
		Path:      schema.Path,
		Dynamic:   schema.Dynamic,
		StartedAt: time.Now(),
	}
	run := &stageRun{schema: schema, refs: refs, record: &record}

	p.timed(domain.StageRule, func() { p.ruleStage(ctx, run) })

	if schema.Dynamic {
		logger.Debug("%s is dynamic, skipping compare, checksum and approval", schema.Key)
		record.CompareStage = domain.ResultSkipped
		record.ChecksumStage = domain.ResultSkipped
		record.ApprovalStage = domain.ResultSkipped
	} else {
		p.timed(domain.StageCompare, func() { p.compareStage(ctx, run) })
		p.timed(domain.StageChecksum, func() { p.checksumStage(ctx, run) })
		p.timed(domain.StageApproval, func() { p.approvalStage(run) })
	}

	record.Duration = time.Since(record.StartedAt)
	if err := record.Validate(); err != nil {
		logger.Warn("%s: inconsistent audit record: %v", record.Key(), err)
	}
	return record
}

func (p *Pipeline) timed(stage domain.Stage, fn func()) {
	start := time.Now()
	fn()
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, time.Since(start))
	}
}

func (p *Pipeline) ruleStage(ctx context.Context, run *stageRun) {
	diags, err := guard(domain.StageRule, func() ([]domain.Diagnostic, error) {
		return p.rules.Check(ctx, run.schema, run.refs)
	})
	run.record.Diagnostics = diags
	if err != nil {
		run.record.SetError(domain.StageRule, err)
		return
	}
	run.record.RuleStage = classifyDiagnostics(diags)
}

// classifyDiagnostics maps rule checker output to a stage result.
// The unsupported marker takes precedence over error-severity diagnostics.
func classifyDiagnostics(diags []domain.Diagnostic) domain.StageResult {
	for _, d := range diags {
		if strings.Contains(d.Message, driven.UnsupportedSchemaMarker) {
			return domain.ResultSkipped
		}
	}
	for _, d := range diags {
		if d.Severity == domain.SeverityError {
			return domain.ResultFailed
		}
	}
	return domain.ResultPassed
}

func (p *Pipeline) compareStage(ctx context.Context, run *stageRun) {
	candidate, ok := p.locater.Locate(ctx, run.schema.Key, domain.MatchLatestWriteCompatible, p.config.ReleasedDirs)
	if !ok {
		logger.Debug("%s: no baseline in released dirs", run.schema.Key)
		run.record.CompareStage = domain.ResultNotFound
		return
	}
	run.record.BaselinePath = candidate.Path

	dirs := append(append([]string(nil), p.config.ReleasedDirs...), p.config.ReferenceDirs...)
	order, err := p.resolver.resolveCandidate(ctx, candidate, dirs)
	if err != nil {
		run.record.SetError(domain.StageCompare, fmt.Errorf("resolve baseline %s: %w", candidate.Path, err))
		return
	}
	run.baseline = order[len(order)-1]

	entries, err := guard(domain.StageCompare, func() ([]domain.CompareEntry, error) {
		return p.comparer.Compare(ctx, run.schema, run.baseline, run.schema.ReferencePaths(), run.baseline.ReferencePaths())
	})
	run.record.Differences = entries
	if err != nil {
		run.record.SetError(domain.StageCompare, err)
		return
	}
	result, cause := classifyEntries(entries)
	if cause != nil {
		run.record.SetError(domain.StageCompare, cause)
		return
	}
	run.record.CompareStage = result
}

// classifyEntries maps comparer output to a stage result. An error entry
// is returned as the cause of an Error result.
func classifyEntries(entries []domain.CompareEntry) (domain.StageResult, error) {
	deltas, referenceOnly := 0, 0
	for _, e := range entries {
		switch e.Kind {
		case domain.EntryError:
			return domain.ResultError, fmt.Errorf("%w: %s", domain.ErrCollaborator, e.Message)
		case domain.EntryDelta:
			deltas++
			if e.ReferenceOnly() {
				referenceOnly++
			}
		}
	}
	switch {
	case deltas == 0:
		return domain.ResultPassed, nil
	case deltas == referenceOnly:
		return domain.ResultReferenceOnlyWarning, nil
	default:
		return domain.ResultFailed, nil
	}
}

func (p *Pipeline) checksumStage(ctx context.Context, run *stageRun) {
	rec := run.record
	computed, err := guard(domain.StageChecksum, func() (string, error) {
		return p.checksum.Hash(ctx, run.schema.Path, run.schema.ReferencePaths(), false)
	})
	if err != nil {
		rec.SetError(domain.StageChecksum, err)
		return
	}
	rec.ComputedChecksum = computed

	entry, err := p.lookup(domain.StageChecksum, rec.Name, rec.Version)
	if err != nil {
		rec.SetError(domain.StageChecksum, fmt.Errorf("inventory: %w", err))
		return
	}
	if entry == nil || entry.Checksum == "" {
		logger.Debug("%s: no recorded checksum", rec.Key())
		rec.ChecksumStage = domain.ResultFailed
		return
	}
	rec.InventoryChecksum = entry.Checksum

	if strings.EqualFold(computed, entry.Checksum) {
		rec.ChecksumStage = domain.ResultPassed
		return
	}

	compareClean := rec.CompareStage == domain.ResultPassed || rec.CompareStage == domain.ResultReferenceOnlyWarning
	if !compareClean || run.baseline == nil {
		rec.ChecksumStage = domain.ResultFailed
		return
	}

	baseline, err := guard(domain.StageChecksum, func() (string, error) {
		return p.checksum.Hash(ctx, run.baseline.Path, run.baseline.ReferencePaths(), false)
	})
	if err != nil {
		rec.SetError(domain.StageChecksum, fmt.Errorf("baseline: %w", err))
		return
	}
	rec.BaselineChecksum = baseline

	if strings.EqualFold(baseline, entry.Checksum) {
		logger.Debug("%s: checksum matches through baseline %s", rec.Key(), run.baseline.Path)
		rec.ChecksumStage = domain.ResultPassed
		rec.ChecksumException = true
		return
	}
	rec.ChecksumStage = domain.ResultFailed
}

func (p *Pipeline) approvalStage(run *stageRun) {
	entry, err := p.lookup(domain.StageApproval, run.record.Name, run.record.Version)
	if err != nil {
		run.record.SetError(domain.StageApproval, fmt.Errorf("inventory: %w", err))
		return
	}
	if entry != nil && entry.Approved && entry.Verified {
		run.record.ApprovalStage = domain.ResultPassed
		return
	}
	run.record.ApprovalStage = domain.ResultFailed
}

// lookup prefers the released inventory entry and falls back to any entry.
// A missing entry is nil with no error.
func (p *Pipeline) lookup(stage domain.Stage, name, version string) (*domain.InventoryEntry, error) {
	if p.inventory == nil {
		return nil, nil
	}
	return guard(stage, func() (*domain.InventoryEntry, error) {
		if entry, ok := p.inventory.Lookup(name, version, true); ok {
			return entry, nil
		}
		if entry, ok := p.inventory.Lookup(name, version, false); ok {
			return entry, nil
		}
		return nil, nil
	})
}

// guard calls fn, converting a panic or an error into a collaborator error.
func guard[T any](stage domain.Stage, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
			err = fmt.Errorf("%w: %s stage panicked: %v", domain.ErrCollaborator, stage, r)
		}
	}()
	out, err = fn()
	if err != nil && !errors.Is(err, domain.ErrCollaborator) {
		err = fmt.Errorf("%w: %w", domain.ErrCollaborator, err)
	}
	return out, err
}
