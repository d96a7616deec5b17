// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - FileSystem: Directory listing, discovery and file reads
//   - SchemaHost: Opens scoped sessions that read and deserialize schema documents
//   - HeaderReader: Reads a schema header without a session
//   - RuleChecker: Rule validation collaborator
//   - SchemaComparer: Schema comparison collaborator
//   - ChecksumTool: Content checksum collaborator
//   - InventoryLoader: Loads the approval inventory once per run
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ReportWriter: Persists per-schema logs and run summaries. Without it, no artifacts are written.
//   - AuditStore: Run history persistence. Without it, runs are not recorded.
//   - MetricsRecorder: Stage outcome metrics. Without it, nothing is observed.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
