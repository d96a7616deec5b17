package domain

import (
	"time"
)

// AuditRequest describes one audit run.
type AuditRequest struct {
	// InputPath is a schema file or a directory searched recursively for schema files.
	InputPath string `json:"inputPath"`

	// ReferenceDirs are searched, in order, for referenced schemas.
	ReferenceDirs []string `json:"referenceDirs,omitempty"`

	// ReleasedDirs hold previously released schemas used as comparison baselines.
	ReleasedDirs []string `json:"releasedDirs,omitempty"`

	// OutputDir receives per-schema logs and the summary. Empty disables artifacts.
	OutputDir string `json:"outputDir,omitempty"`

	// InventoryPath is the approval inventory file. Empty means an empty inventory.
	InventoryPath string `json:"inventoryPath,omitempty"`

	// Jobs bounds concurrent schema audits. Values below 2 run sequentially.
	Jobs int `json:"jobs,omitempty"`

	// NotFoundIsFailure makes a missing baseline fail the verdict.
	NotFoundIsFailure bool `json:"notFoundIsFailure,omitempty"`
}

// Verdict is the overall outcome of a run.
type Verdict string

const (
	VerdictPassed Verdict = "Passed"
	VerdictFailed Verdict = "Failed"
)

// AuditSummary holds per-stage counters and the verdict of a run.
type AuditSummary struct {
	// Counters maps stage name to result name to count.
	Counters map[string]map[string]int `json:"counters"`

	Total              int `json:"total"`
	Unresolved         int `json:"unresolved"`
	ChecksumExceptions int `json:"checksumExceptions"`

	Verdict Verdict  `json:"verdict"`
	Reasons []string `json:"reasons,omitempty"`
}

// NewAuditSummary returns a summary with every counter present at zero.
func NewAuditSummary() AuditSummary {
	counters := make(map[string]map[string]int, len(Stages()))
	for _, stage := range Stages() {
		row := make(map[string]int, len(StageResults()))
		for _, res := range StageResults() {
			row[res.String()] = 0
		}
		counters[stage.String()] = row
	}
	return AuditSummary{Counters: counters, Verdict: VerdictPassed}
}

// Count returns the number of records with result in stage.
func (s AuditSummary) Count(stage Stage, result StageResult) int {
	return s.Counters[stage.String()][result.String()]
}

// Passed reports whether the verdict is Passed.
func (s AuditSummary) Passed() bool {
	return s.Verdict == VerdictPassed
}

// AuditRun is a completed audit: request, records and summary.
type AuditRun struct {
	ID         string              `json:"id"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Request    AuditRequest        `json:"request"`
	Summary    AuditSummary        `json:"summary"`
	Records    []SchemaAuditRecord `json:"records,omitempty"`
}

// Duration returns the wall time of the run.
func (r *AuditRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
