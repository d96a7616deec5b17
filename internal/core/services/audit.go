package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driving"
	"github.com/custodia-labs/ecaudit/internal/logger"
)

// Ensure AuditService implements the interface.
var _ driving.Auditor = (*AuditService)(nil)

// AuditService drives a batch: it discovers input schemas, resolves each
// one, runs the pipeline, then aggregates and records the run.
type AuditService struct {
	fs        driven.FileSystem
	resolver  *Resolver
	locater   *Locater
	rules     driven.RuleChecker
	comparer  driven.SchemaComparer
	checksum  driven.ChecksumTool
	inventory driven.InventoryLoader
	reports   driven.ReportWriter
	store     driven.AuditStore
	metrics   driven.MetricsRecorder

	now func() time.Time
}

// NewAuditService creates an audit service.
// reports, store and metrics are optional and may be nil.
func NewAuditService(
	fs driven.FileSystem,
	resolver *Resolver,
	locater *Locater,
	rules driven.RuleChecker,
	comparer driven.SchemaComparer,
	checksum driven.ChecksumTool,
	inventory driven.InventoryLoader,
	reports driven.ReportWriter,
	store driven.AuditStore,
	metrics driven.MetricsRecorder,
) *AuditService {
	return &AuditService{
		fs:        fs,
		resolver:  resolver,
		locater:   locater,
		rules:     rules,
		comparer:  comparer,
		checksum:  checksum,
		inventory: inventory,
		reports:   reports,
		store:     store,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Run audits every schema under req.InputPath.
func (s *AuditService) Run(ctx context.Context, req domain.AuditRequest) (*domain.AuditRun, error) {
	if req.InputPath == "" {
		return nil, fmt.Errorf("%w: input path is required", domain.ErrInvalidInput)
	}
	isDir, err := s.fs.IsDir(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: input path %s: %v", domain.ErrInvalidInput, req.InputPath, err)
	}

	run := &domain.AuditRun{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
		Request:   req,
	}

	inv, err := s.inventory.Load(ctx, req.InventoryPath)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	logger.Debug("inventory: %d entries from %q", inv.Len(), req.InventoryPath)

	inputs := []string{req.InputPath}
	inputDir := filepath.Dir(req.InputPath)
	if isDir {
		inputDir = req.InputPath
		inputs, err = s.fs.Discover(req.InputPath, domain.SchemaFileSuffix)
		if err != nil {
			return nil, fmt.Errorf("discover schemas in %s: %w", req.InputPath, err)
		}
	}
	logger.Section("Audit")
	logger.Info("auditing %d schemas from %s", len(inputs), req.InputPath)

	pipeline := NewPipeline(s.rules, s.comparer, s.checksum, inv, s.locater, s.resolver, s.metrics, PipelineConfig{
		ReleasedDirs:  req.ReleasedDirs,
		ReferenceDirs: req.ReferenceDirs,
	})
	dirs := withFirst(inputDir, req.ReferenceDirs)

	records, err := s.auditAll(ctx, pipeline, inputs, dirs, req.Jobs)
	if err != nil {
		return nil, err
	}

	run.Records = records
	run.Summary = Aggregate(records, AggregatorOptions{NotFoundIsFailure: req.NotFoundIsFailure})
	run.FinishedAt = s.now()
	if s.metrics != nil {
		s.metrics.ObserveRun(&run.Summary)
	}
	logger.Info("audit %s: %s (%d schemas, %d unresolved)", run.ID, run.Summary.Verdict, run.Summary.Total, run.Summary.Unresolved)

	if err := s.writeReports(run); err != nil {
		return run, err
	}
	if s.store != nil {
		if err := s.store.SaveRun(ctx, run); err != nil {
			logger.Warn("failed to record audit run %s: %v", run.ID, err)
		}
	}
	return run, nil
}

// auditAll audits inputs, concurrently when jobs > 1. Records keep input order.
func (s *AuditService) auditAll(ctx context.Context, pipeline *Pipeline, inputs, dirs []string, jobs int) ([]domain.SchemaAuditRecord, error) {
	records := make([]domain.SchemaAuditRecord, len(inputs))

	if jobs < 2 {
		for i, path := range inputs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			records[i] = s.auditOne(ctx, pipeline, path, dirs)
		}
		return records, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = s.auditOne(gctx, pipeline, path, dirs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *AuditService) auditOne(ctx context.Context, pipeline *Pipeline, path string, dirs []string) domain.SchemaAuditRecord {
	var record domain.SchemaAuditRecord

	order, err := s.resolver.ResolveFile(ctx, path, dirs)
	if err != nil {
		record = unresolvedRecord(path, err)
	} else {
		root := order[len(order)-1]
		record = pipeline.Run(ctx, root, order[:len(order)-1])
	}

	logger.Debug("%s: rule=%s compare=%s checksum=%s approval=%s", record.Key(),
		record.RuleStage, record.CompareStage, record.ChecksumStage, record.ApprovalStage)
	if s.metrics != nil {
		s.metrics.ObserveRecord(&record)
	}
	return record
}

// unresolvedRecord marks every stage Error for a schema whose graph could not be resolved.
func unresolvedRecord(path string, err error) domain.SchemaAuditRecord {
	record := domain.SchemaAuditRecord{Path: path, StartedAt: time.Now()}

	stem, _ := trimSchemaSuffix(filepath.Base(path))
	if key, ok := ParseSchemaFileName(stem); ok {
		record.Name, record.Version = key.Name, key.Version.String()
	} else {
		record.Name = stem
		if stem == "" {
			record.Name = filepath.Base(path)
		}
	}

	switch {
	case errors.Is(err, domain.ErrCyclicDependency):
		logger.Error("%s: %v", path, err)
	case errors.Is(err, domain.ErrSchemaNotFound):
		logger.Warn("%s: %v", path, err)
	default:
		logger.Warn("%s: cannot resolve: %v", path, err)
	}

	record.ResolutionError = err.Error()
	for _, stage := range domain.Stages() {
		record.SetError(stage, err)
	}
	return record
}

func (s *AuditService) writeReports(run *domain.AuditRun) error {
	if s.reports == nil || run.Request.OutputDir == "" {
		return nil
	}
	for i := range run.Records {
		if err := s.reports.WriteRecord(run.Request.OutputDir, run, &run.Records[i]); err != nil {
			return fmt.Errorf("write report for %s: %w", run.Records[i].Key(), err)
		}
	}
	if err := s.reports.WriteSummary(run.Request.OutputDir, run); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
