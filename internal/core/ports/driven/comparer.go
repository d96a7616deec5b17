package driven

import (
	"context"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// SchemaComparer diffs a schema against its released baseline.
type SchemaComparer interface {
	// Compare returns the differences between a and b. refPathsA and refPathsB
	// are the reference schema files each side was loaded with.
	Compare(ctx context.Context, a, b *domain.ResolvedSchema, refPathsA, refPathsB []string) ([]domain.CompareEntry, error)
}
