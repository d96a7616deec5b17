package services

import (
	"fmt"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// AggregatorOptions tunes the verdict rule.
type AggregatorOptions struct {
	// NotFoundIsFailure makes a missing baseline fail the verdict.
	NotFoundIsFailure bool
}

// Aggregator folds audit records into counters and a verdict.
// It is not safe for concurrent use.
type Aggregator struct {
	opts    AggregatorOptions
	summary domain.AuditSummary
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	return &Aggregator{opts: opts, summary: domain.NewAuditSummary()}
}

// Add folds one record.
func (a *Aggregator) Add(record *domain.SchemaAuditRecord) {
	s := &a.summary
	s.Total++
	for _, stage := range domain.Stages() {
		if res := record.Result(stage); res.Settled() {
			s.Counters[stage.String()][res.String()]++
		}
	}
	if record.ChecksumException {
		s.ChecksumExceptions++
	}

	if record.ResolutionError != "" {
		s.Unresolved++
		a.fail("%s: unresolved: %s", record.Key(), record.ResolutionError)
		return
	}
	for _, stage := range domain.Stages() {
		if record.Result(stage) == domain.ResultFailed {
			a.fail("%s: %s stage failed", record.Key(), stage)
		}
	}
	if a.opts.NotFoundIsFailure && record.CompareStage == domain.ResultNotFound {
		a.fail("%s: no baseline found", record.Key())
	}
}

func (a *Aggregator) fail(format string, args ...any) {
	a.summary.Verdict = domain.VerdictFailed
	a.summary.Reasons = append(a.summary.Reasons, fmt.Sprintf(format, args...))
}

// Summary returns a copy of the current summary.
func (a *Aggregator) Summary() domain.AuditSummary {
	out := a.summary
	out.Counters = make(map[string]map[string]int, len(a.summary.Counters))
	for stage, row := range a.summary.Counters {
		copied := make(map[string]int, len(row))
		for res, n := range row {
			copied[res] = n
		}
		out.Counters[stage] = copied
	}
	out.Reasons = append([]string(nil), a.summary.Reasons...)
	return out
}

// Aggregate folds records in one call.
func Aggregate(records []domain.SchemaAuditRecord, opts AggregatorOptions) domain.AuditSummary {
	agg := NewAggregator(opts)
	for i := range records {
		agg.Add(&records[i])
	}
	return agg.Summary()
}
