package driving

import (
	"context"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// SchemaResolver exposes dependency resolution and file location.
type SchemaResolver interface {
	// Resolve returns the dependency-ordered load list for a key.
	// The root schema is the last element.
	Resolve(ctx context.Context, root domain.VersionKey, policy domain.MatchPolicy, dirs []string) ([]*domain.ResolvedSchema, error)

	// ResolveFile resolves the schema stored at path. The file's own
	// directory is searched before dirs.
	ResolveFile(ctx context.Context, path string, dirs []string) ([]*domain.ResolvedSchema, error)

	// Candidates lists every file in dirs matching target under policy,
	// best match first.
	Candidates(ctx context.Context, target domain.VersionKey, policy domain.MatchPolicy, dirs []string) []domain.FileCandidate
}
