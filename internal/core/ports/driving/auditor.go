package driving

import (
	"context"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// Auditor runs audit batches.
type Auditor interface {
	// Run audits every schema under req.InputPath and returns the finished run.
	// A run whose verdict is Failed is not an error; errors mean the run
	// could not be carried out at all.
	Run(ctx context.Context, req domain.AuditRequest) (*domain.AuditRun, error)
}
