package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// execute runs the root command with args and returns everything written
// to stdout and stderr. Flags and services are reset afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag in the tree to its default so state does
// not leak between tests sharing the package-level command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// withServices configures deps for the duration of a test.
func withServices(t *testing.T, deps *Dependencies) {
	t.Helper()
	Configure(deps)
	t.Cleanup(func() { Configure(nil) })
}

// fakeAuditor returns a canned run and records every request.
type fakeAuditor struct {
	mu       sync.Mutex
	requests []domain.AuditRequest
	run      *domain.AuditRun
	err      error
}

func (f *fakeAuditor) Run(_ context.Context, req domain.AuditRequest) (*domain.AuditRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.run == nil {
		return nil, f.err
	}
	run := *f.run
	run.Request = req
	return &run, f.err
}

func (f *fakeAuditor) calls() []domain.AuditRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditRequest(nil), f.requests...)
}

// fakeResolver returns canned resolution results and records its inputs.
type fakeResolver struct {
	order      []*domain.ResolvedSchema
	candidates []domain.FileCandidate
	err        error

	gotKey    domain.VersionKey
	gotPolicy domain.MatchPolicy
	gotPath   string
	gotDirs   []string
}

func (f *fakeResolver) Resolve(_ context.Context, root domain.VersionKey, policy domain.MatchPolicy, dirs []string) ([]*domain.ResolvedSchema, error) {
	f.gotKey, f.gotPolicy, f.gotDirs = root, policy, dirs
	return f.order, f.err
}

func (f *fakeResolver) ResolveFile(_ context.Context, path string, dirs []string) ([]*domain.ResolvedSchema, error) {
	f.gotPath, f.gotDirs = path, dirs
	return f.order, f.err
}

func (f *fakeResolver) Candidates(_ context.Context, target domain.VersionKey, policy domain.MatchPolicy, dirs []string) []domain.FileCandidate {
	f.gotKey, f.gotPolicy, f.gotDirs = target, policy, dirs
	return f.candidates
}

// fakeWatcher replays fixed change batches, then closes the channel.
type fakeWatcher struct {
	batches [][]string
	err     error
	roots   []string
}

func (f *fakeWatcher) Watch(_ context.Context, roots []string) (<-chan []string, error) {
	f.roots = roots
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan []string)
	go func() {
		defer close(out)
		for _, b := range f.batches {
			out <- b
		}
	}()
	return out, nil
}

func record(name, version string, results ...domain.StageResult) domain.SchemaAuditRecord {
	rec := domain.SchemaAuditRecord{Name: name, Version: version, Path: "/schemas/" + name + ".ecschema.xml"}
	for i, stage := range domain.Stages() {
		res := domain.ResultPassed
		if i < len(results) {
			res = results[i]
		}
		rec.SetResult(stage, res)
	}
	return rec
}

// sampleRun builds a finished run with summary counters derived from records.
func sampleRun(id string, records ...domain.SchemaAuditRecord) *domain.AuditRun {
	started := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	summary := domain.NewAuditSummary()
	for i := range records {
		summary.Total++
		for _, stage := range domain.Stages() {
			summary.Counters[stage.String()][records[i].Result(stage).String()]++
		}
		if records[i].Failed() {
			summary.Verdict = domain.VerdictFailed
			summary.Reasons = append(summary.Reasons, records[i].Key()+": failed")
		}
	}
	return &domain.AuditRun{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Summary:    summary,
		Records:    records,
	}
}
