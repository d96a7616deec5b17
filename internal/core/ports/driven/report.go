package driven

import "github.com/custodia-labs/ecaudit/internal/core/domain"

// ReportWriter persists run artifacts into an output directory.
type ReportWriter interface {
	// WriteRecord writes the per-schema log for one record.
	WriteRecord(outputDir string, run *domain.AuditRun, record *domain.SchemaAuditRecord) error

	// WriteSummary writes the aggregate summary artifacts for a finished run.
	WriteSummary(outputDir string, run *domain.AuditRun) error
}
