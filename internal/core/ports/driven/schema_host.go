package driven

import (
	"context"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// HeaderReader extracts a schema header from raw document bytes.
// It must not require any other schema to be loaded.
type HeaderReader interface {
	ReadHeader(raw []byte) (*domain.SchemaHeader, error)
}

// SchemaHost opens deserialization sessions.
// One session backs exactly one resolution pass.
type SchemaHost interface {
	// Open starts a session that may look up references in searchDirs.
	Open(ctx context.Context, searchDirs []string) (SchemaSession, error)
}

// SchemaSession is the scoped deserialization context of a resolution pass.
// Callers must Close it when the pass ends, whether or not it succeeded.
// Sessions are not safe for concurrent use.
type SchemaSession interface {
	HeaderReader

	// Deserialize loads a candidate into a document. Every schema in refs
	// must already have been deserialized in this session.
	Deserialize(ctx context.Context, candidate *domain.FileCandidate, refs []*domain.ResolvedSchema) (domain.SchemaDocument, error)

	// Close releases the session. Further use returns domain.ErrSessionClosed.
	Close() error
}
