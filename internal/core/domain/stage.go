package domain

import (
	"fmt"
	"strings"
)

// Stage is one of the four audit stages, in execution order.
type Stage int

const (
	StageRule Stage = iota
	StageCompare
	StageChecksum
	StageApproval
)

// Stages returns every stage in fixed execution order.
func Stages() []Stage {
	return []Stage{StageRule, StageCompare, StageChecksum, StageApproval}
}

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageRule:
		return "rule"
	case StageCompare:
		return "compare"
	case StageChecksum:
		return "checksum"
	case StageApproval:
		return "approval"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Title returns a display label for reports.
func (s Stage) Title() string {
	switch s {
	case StageRule:
		return "Rule Validation"
	case StageCompare:
		return "Schema Comparison"
	case StageChecksum:
		return "Checksum Verification"
	case StageApproval:
		return "Approval Check"
	default:
		return s.String()
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	for _, st := range Stages() {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, text)
}

// StageResult is the outcome of one stage for one schema.
// The zero value means the stage has not run.
type StageResult int

const (
	ResultNotRun StageResult = iota
	ResultPassed
	ResultFailed
	ResultSkipped
	ResultError
	ResultReferenceOnlyWarning
	ResultNotFound
)

// StageResults returns every settled result value.
func StageResults() []StageResult {
	return []StageResult{
		ResultPassed,
		ResultFailed,
		ResultSkipped,
		ResultError,
		ResultReferenceOnlyWarning,
		ResultNotFound,
	}
}

// String returns the result name.
func (r StageResult) String() string {
	switch r {
	case ResultNotRun:
		return "NotRun"
	case ResultPassed:
		return "Passed"
	case ResultFailed:
		return "Failed"
	case ResultSkipped:
		return "Skipped"
	case ResultError:
		return "Error"
	case ResultReferenceOnlyWarning:
		return "ReferenceOnlyWarning"
	case ResultNotFound:
		return "NotFound"
	default:
		return fmt.Sprintf("StageResult(%d)", int(r))
	}
}

// ParseStageResult parses a result name, ignoring case.
func ParseStageResult(s string) (StageResult, error) {
	for _, r := range append([]StageResult{ResultNotRun}, StageResults()...) {
		if strings.EqualFold(r.String(), s) {
			return r, nil
		}
	}
	return ResultNotRun, fmt.Errorf("%w: unknown stage result %q", ErrInvalidInput, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r StageResult) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *StageResult) UnmarshalText(text []byte) error {
	parsed, err := ParseStageResult(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Settled reports whether the stage has produced a result.
func (r StageResult) Settled() bool {
	return r != ResultNotRun
}
