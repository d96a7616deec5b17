package domain

import (
	"errors"
	"fmt"
	"time"
)

// SchemaAuditRecord is the result of auditing one schema.
// The pipeline returns it by value once all four stages settle.
type SchemaAuditRecord struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path"`
	Dynamic bool   `json:"dynamic"`

	RuleStage     StageResult `json:"ruleStage"`
	CompareStage  StageResult `json:"compareStage"`
	ChecksumStage StageResult `json:"checksumStage"`
	ApprovalStage StageResult `json:"approvalStage"`

	ComputedChecksum  string `json:"computedChecksum,omitempty"`
	BaselineChecksum  string `json:"baselineChecksum,omitempty"`
	InventoryChecksum string `json:"inventoryChecksum,omitempty"`

	// ChecksumException marks a checksum Passed only because the baseline matched.
	ChecksumException bool `json:"checksumException,omitempty"`

	BaselinePath string            `json:"baselinePath,omitempty"`
	Diagnostics  []Diagnostic      `json:"diagnostics,omitempty"`
	Differences  []CompareEntry    `json:"differences,omitempty"`
	StageErrors  map[string]string `json:"stageErrors,omitempty"`

	// ResolutionError is set when the schema could not be resolved at all.
	ResolutionError string `json:"resolutionError,omitempty"`

	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// Result returns the outcome of a stage.
func (r *SchemaAuditRecord) Result(stage Stage) StageResult {
	switch stage {
	case StageRule:
		return r.RuleStage
	case StageCompare:
		return r.CompareStage
	case StageChecksum:
		return r.ChecksumStage
	case StageApproval:
		return r.ApprovalStage
	default:
		return ResultNotRun
	}
}

// SetResult records the outcome of a stage.
func (r *SchemaAuditRecord) SetResult(stage Stage, result StageResult) {
	switch stage {
	case StageRule:
		r.RuleStage = result
	case StageCompare:
		r.CompareStage = result
	case StageChecksum:
		r.ChecksumStage = result
	case StageApproval:
		r.ApprovalStage = result
	}
}

// SetError records a stage as Error along with the cause.
func (r *SchemaAuditRecord) SetError(stage Stage, err error) {
	r.SetResult(stage, ResultError)
	if r.StageErrors == nil {
		r.StageErrors = make(map[string]string)
	}
	r.StageErrors[stage.String()] = err.Error()
}

// Key returns "Name.Version" as used in file names and reports.
func (r *SchemaAuditRecord) Key() string {
	return r.Name + "." + r.Version
}

// Failed reports whether any stage was determined to be non-compliant.
func (r *SchemaAuditRecord) Failed() bool {
	for _, stage := range Stages() {
		if r.Result(stage) == ResultFailed {
			return true
		}
	}
	return false
}

// Validate rejects stage combinations the pipeline can never produce.
func (r *SchemaAuditRecord) Validate() error {
	var errs []error
	for _, stage := range Stages() {
		if !r.Result(stage).Settled() {
			errs = append(errs, fmt.Errorf("%s stage has not settled", stage))
		}
	}
	if r.ResolutionError != "" {
		return errors.Join(errs...)
	}

	if r.Dynamic {
		for _, stage := range []Stage{StageCompare, StageChecksum, StageApproval} {
			if res := r.Result(stage); res.Settled() && res != ResultSkipped {
				errs = append(errs, fmt.Errorf("dynamic schema has %s stage %s, want Skipped", stage, res))
			}
		}
	} else if r.ApprovalStage == ResultSkipped && r.CompareStage == ResultFailed {
		errs = append(errs, errors.New("approval skipped alongside failed compare on a non-dynamic schema"))
	}
	if r.ChecksumException && r.ChecksumStage != ResultPassed {
		errs = append(errs, fmt.Errorf("checksum exception recorded on %s checksum stage", r.ChecksumStage))
	}
	return errors.Join(errs...)
}
