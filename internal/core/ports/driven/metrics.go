package driven

import (
	"time"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// MetricsRecorder observes audit outcomes.
// Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	// ObserveRecord counts the settled stages of one record.
	ObserveRecord(record *domain.SchemaAuditRecord)

	// ObserveStage records how long a stage took.
	ObserveStage(stage domain.Stage, elapsed time.Duration)

	// ObserveRun records the verdict of a finished run.
	ObserveRun(summary *domain.AuditSummary)
}
