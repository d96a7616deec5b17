// Package domain defines the core audit entities for ecaudit.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - VersionKey: A schema name with a read.write.minor version
//   - MatchPolicy: How a version request selects among candidates
//   - ResolvedSchema: One node of a dependency-ordered resolution pass
//   - StageResult: The outcome of one audit stage
//   - SchemaAuditRecord: The per-schema audit result
//   - AuditRun: A completed run with its summary
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
