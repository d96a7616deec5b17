package driven

import (
	"context"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// UnsupportedSchemaMarker is the reserved diagnostic message substring a
// RuleChecker uses to report a schema it does not audit (e.g. a standard schema).
const UnsupportedSchemaMarker = "unsupported schema"

// RuleChecker validates a schema against the platform's rule set.
type RuleChecker interface {
	// Check returns every diagnostic raised for schema.
	// refs holds the schema's resolved dependencies in load order.
	Check(ctx context.Context, schema *domain.ResolvedSchema, refs []*domain.ResolvedSchema) ([]domain.Diagnostic, error)
}
