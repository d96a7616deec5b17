package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent audit failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Resolution Errors.

	// ErrInvalidVersionString indicates version text that cannot be used as a schema version.
	ErrInvalidVersionString = errors.New("invalid version string")

	// ErrSchemaNotFound indicates no schema file satisfies a required version key.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrCyclicDependency indicates the reference graph contains a back-edge.
	ErrCyclicDependency = errors.New("cyclic schema dependency")

	// Pipeline Errors.

	// ErrCollaborator indicates an external stage collaborator failed.
	// It is converted to a StageResult and never aborts a run.
	ErrCollaborator = errors.New("collaborator error")

	// ErrSessionClosed indicates a schema session was used after Close.
	ErrSessionClosed = errors.New("schema session closed")

	// ErrAuditFailed indicates the aggregate verdict of a run is Failed.
	ErrAuditFailed = errors.New("audit failed")
)

// SchemaNotFoundError reports a version key that no search directory satisfies.
type SchemaNotFoundError struct {
	Key    VersionKey
	Policy MatchPolicy

	// From is the schema that declared the reference, zero for the root.
	From VersionKey
}

func (e *SchemaNotFoundError) Error() string {
	if e.From.Name == "" {
		return fmt.Sprintf("schema not found: %s (%s)", e.Key, e.Policy)
	}
	return fmt.Sprintf("schema not found: %s (%s) referenced by %s", e.Key, e.Policy, e.From)
}

// Unwrap allows errors.Is(err, ErrSchemaNotFound).
func (e *SchemaNotFoundError) Unwrap() error {
	return ErrSchemaNotFound
}

// CyclicDependencyError reports a reference from From to an ancestor To.
type CyclicDependencyError struct {
	From VersionKey
	To   VersionKey
}

func (e *CyclicDependencyError) Error() string {
	if e.From.SameIdentity(e.To) {
		return fmt.Sprintf("cyclic schema dependency: %s references itself", e.From)
	}
	return fmt.Sprintf("cyclic schema dependency: %s references ancestor %s", e.From, e.To)
}

// Unwrap allows errors.Is(err, ErrCyclicDependency).
func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}
