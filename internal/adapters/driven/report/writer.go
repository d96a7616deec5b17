// Package report writes audit artifacts to an output directory.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// Artifact file names.
const (
	SummaryFile = "summary.logs"
	JSONFile    = "report.json"
	MetricsFile = "audit.prom"
	recordExt   = ".logs"
)

// TextfileWriter exports metrics in the Prometheus text format.
type TextfileWriter interface {
	WriteTextfile(path string) error
}

// Writer writes per-schema logs, the summary, a JSON report and,
// when a TextfileWriter is set, a metrics file.
type Writer struct {
	metrics TextfileWriter
}

// Ensure Writer implements the interface.
var _ driven.ReportWriter = (*Writer)(nil)

// NewWriter creates a report writer. metrics may be nil.
func NewWriter(metrics TextfileWriter) *Writer {
	return &Writer{metrics: metrics}
}

// RecordFile returns the log file name of a record. Name and version are
// reduced to their last path element so the file stays in the output
// directory. A record without a version is named after the schema only.
func RecordFile(record *domain.SchemaAuditRecord) string {
	name := fileComponent(record.Name)
	if record.Version == "" {
		return name + recordExt
	}
	return name + "." + fileComponent(record.Version) + recordExt
}

func fileComponent(s string) string {
	base := filepath.Base(strings.TrimSpace(s))
	switch base {
	case ".", "..", string(filepath.Separator):
		return "unnamed"
	}
	return base
}

// WriteRecord writes {Name}.{Version}.logs.
func (w *Writer) WriteRecord(outputDir string, run *domain.AuditRun, record *domain.SchemaAuditRecord) error {
	var b bytes.Buffer

	fmt.Fprintf(&b, "Schema:  %s\n", record.Name)
	fmt.Fprintf(&b, "Version: %s\n", record.Version)
	fmt.Fprintf(&b, "Path:    %s\n", record.Path)
	fmt.Fprintf(&b, "Run:     %s\n", run.ID)
	if record.Dynamic {
		b.WriteString("Dynamic: yes\n")
	}
	b.WriteString("\n")

	for _, stage := range domain.Stages() {
		fmt.Fprintf(&b, "%-22s %s", stage.Title()+":", record.Result(stage))
		if stage == domain.StageChecksum && record.ChecksumException {
			b.WriteString(" (matched through baseline)")
		}
		b.WriteString("\n")
	}

	if record.ResolutionError != "" {
		fmt.Fprintf(&b, "\nResolution error: %s\n", record.ResolutionError)
	}

	writeField(&b, "Baseline", record.BaselinePath)
	writeField(&b, "Computed checksum", record.ComputedChecksum)
	writeField(&b, "Inventory checksum", record.InventoryChecksum)
	writeField(&b, "Baseline checksum", record.BaselineChecksum)

	if len(record.Diagnostics) > 0 {
		b.WriteString("\nDiagnostics:\n")
		for _, d := range record.Diagnostics {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", d.Severity, d.Code, d.Message)
		}
	}
	if len(record.Differences) > 0 {
		b.WriteString("\nDifferences:\n")
		for _, e := range record.Differences {
			if e.Code == "" {
				fmt.Fprintf(&b, "  [%s] %s\n", e.Kind, e.Message)
				continue
			}
			fmt.Fprintf(&b, "  [%s] %s %s: %s\n", e.Kind, e.Code, e.Item, e.Message)
		}
	}
	if len(record.StageErrors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, stage := range domain.Stages() {
			if msg, ok := record.StageErrors[stage.String()]; ok {
				fmt.Fprintf(&b, "  %s: %s\n", stage, msg)
			}
		}
	}

	return writeFile(outputDir, RecordFile(record), b.Bytes())
}

// WriteSummary writes summary.logs, report.json and the metrics file.
func (w *Writer) WriteSummary(outputDir string, run *domain.AuditRun) error {
	if err := writeFile(outputDir, SummaryFile, summaryText(run)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}
	if err := writeFile(outputDir, JSONFile, data); err != nil {
		return err
	}

	if w.metrics != nil {
		if err := w.metrics.WriteTextfile(filepath.Join(outputDir, MetricsFile)); err != nil {
			return err
		}
	}
	return nil
}

func summaryText(run *domain.AuditRun) []byte {
	var b bytes.Buffer
	s := run.Summary

	fmt.Fprintf(&b, "Audit run: %s\n", run.ID)
	fmt.Fprintf(&b, "Started:   %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:  %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "Input:     %s\n", run.Request.InputPath)
	fmt.Fprintf(&b, "Schemas:   %d (unresolved %d, checksum exceptions %d)\n", s.Total, s.Unresolved, s.ChecksumExceptions)

	for _, stage := range domain.Stages() {
		fmt.Fprintf(&b, "\n%s\n", stage.Title())
		for _, res := range domain.StageResults() {
			fmt.Fprintf(&b, "  %-22s %d\n", res.String()+":", s.Count(stage, res))
		}
	}

	failed := failedSchemas(run.Records)
	if len(failed) > 0 {
		b.WriteString("\nFailed schemas:\n")
		for _, name := range failed {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}

	fmt.Fprintf(&b, "\nVerdict: %s\n", s.Verdict)
	for _, reason := range s.Reasons {
		fmt.Fprintf(&b, "  - %s\n", reason)
	}
	return b.Bytes()
}

func failedSchemas(records []domain.SchemaAuditRecord) []string {
	var out []string
	for i := range records {
		if records[i].Failed() || records[i].ResolutionError != "" {
			out = append(out, records[i].Key())
		}
	}
	sort.Strings(out)
	return out
}

func writeField(b *bytes.Buffer, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func writeFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
