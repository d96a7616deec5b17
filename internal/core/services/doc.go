// Package services implements the driving port interfaces.
// Services contain the core audit logic and orchestrate
// calls to driven ports (adapters).
//
// The flow of a run is Locater, Resolver, Pipeline, Aggregator,
// driven by AuditService. Services are pure Go with no CGO.
package services
