package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

var (
	passStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headStyle = lipgloss.NewStyle().Bold(true)
)

// painter applies styles only when writing to a colour terminal.
type painter struct {
	colour bool
}

// newPainter decides colour support for w. Colour is off for anything
// that is not a terminal, and always off with --no-color.
func newPainter(w io.Writer) painter {
	if globals.NoColor {
		return painter{}
	}
	f, ok := w.(*os.File)
	if !ok {
		return painter{}
	}
	return painter{colour: term.IsTerminal(int(f.Fd()))}
}

func (p painter) render(style lipgloss.Style, text string) string {
	if !p.colour {
		return text
	}
	return style.Render(text)
}

func (p painter) badge(passed bool) string {
	if passed {
		return p.render(passStyle, "PASS")
	}
	return p.render(failStyle, "FAIL")
}

// result colours a stage result by severity.
func (p painter) result(r domain.StageResult) string {
	switch r {
	case domain.ResultPassed:
		return p.render(passStyle, r.String())
	case domain.ResultFailed, domain.ResultError:
		return p.render(failStyle, r.String())
	case domain.ResultReferenceOnlyWarning, domain.ResultNotFound:
		return p.render(warnStyle, r.String())
	default:
		return p.render(dimStyle, r.String())
	}
}

// renderRun prints the per-stage counters, the schemas that need
// attention and the verdict.
func renderRun(w io.Writer, run *domain.AuditRun) {
	p := newPainter(w)
	s := &run.Summary

	fmt.Fprintf(w, "%s %s\n", p.render(headStyle, "Audit"), run.ID)
	fmt.Fprintf(w, "  Input:    %s\n", run.Request.InputPath)
	fmt.Fprintf(w, "  Schemas:  %d (%d unresolved)\n", s.Total, s.Unresolved)
	fmt.Fprintf(w, "  Duration: %s\n\n", run.Duration().Round(time.Millisecond))

	for _, stage := range domain.Stages() {
		var parts []string
		for _, res := range domain.StageResults() {
			if n := s.Count(stage, res); n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, p.result(res)))
			}
		}
		if len(parts) == 0 {
			parts = append(parts, p.render(dimStyle, "none"))
		}
		fmt.Fprintf(w, "  %-22s %s\n", stage.Title()+":", strings.Join(parts, ", "))
	}
	if s.ChecksumExceptions > 0 {
		fmt.Fprintf(w, "  %-22s %d\n", "Checksum exceptions:", s.ChecksumExceptions)
	}

	var attention []domain.SchemaAuditRecord
	for i := range run.Records {
		if run.Records[i].Failed() || run.Records[i].ResolutionError != "" {
			attention = append(attention, run.Records[i])
		}
	}
	if len(attention) > 0 {
		fmt.Fprintln(w)
		for i := range attention {
			renderRecordLine(w, p, &attention[i])
		}
	}

	fmt.Fprintf(w, "\nVerdict: %s\n", p.badge(s.Passed()))
	for _, reason := range s.Reasons {
		fmt.Fprintf(w, "  - %s\n", reason)
	}
}

func renderRecordLine(w io.Writer, p painter, rec *domain.SchemaAuditRecord) {
	if rec.ResolutionError != "" {
		fmt.Fprintf(w, "  %s %s: %s\n", p.badge(false), rec.Key(), rec.ResolutionError)
		return
	}
	parts := make([]string, 0, len(domain.Stages()))
	for _, stage := range domain.Stages() {
		parts = append(parts, stage.String()+"="+p.result(rec.Result(stage)))
	}
	fmt.Fprintf(w, "  %s %s  %s\n", p.badge(!rec.Failed()), rec.Key(), strings.Join(parts, " "))
}

// renderRecord prints every stage of one record with its details.
func renderRecord(w io.Writer, rec *domain.SchemaAuditRecord) {
	p := newPainter(w)
	fmt.Fprintf(w, "%s  %s\n", p.render(headStyle, rec.Key()), p.render(dimStyle, rec.Path))
	if rec.ResolutionError != "" {
		fmt.Fprintf(w, "  Unresolved: %s\n", rec.ResolutionError)
	}
	for _, stage := range domain.Stages() {
		line := p.result(rec.Result(stage))
		if stage == domain.StageChecksum && rec.ChecksumException {
			line += " (matched through baseline)"
		}
		if msg := rec.StageErrors[stage.String()]; msg != "" {
			line += ": " + msg
		}
		fmt.Fprintf(w, "  %-22s %s\n", stage.Title()+":", line)
	}
	for _, d := range rec.Diagnostics {
		fmt.Fprintf(w, "    [%s] %s: %s\n", d.Severity, d.Code, d.Message)
	}
	for _, e := range rec.Differences {
		fmt.Fprintf(w, "    %s %s: %s\n", e.Code, e.Item, e.Message)
	}
}

// renderResolved prints a dependency-ordered load list.
func renderResolved(w io.Writer, order []*domain.ResolvedSchema) {
	p := newPainter(w)
	for i, s := range order {
		marker := ""
		if s.Dynamic {
			marker = " " + p.render(warnStyle, "(dynamic)")
		}
		fmt.Fprintf(w, "%3d. %s%s  %s\n", i+1, s.Key, marker, p.render(dimStyle, s.Path))
	}
}
