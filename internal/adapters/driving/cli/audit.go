package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

// auditFlags are the run options shared by audit and watch.
type auditFlags struct {
	input                 string
	baselines             []string
	refs                  []string
	output                string
	inventory             string
	jobs                  int
	failOnMissingBaseline bool
}

func (f *auditFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.input, "input", "i", "", "schema file or directory to audit (required)")
	flags.StringSliceVarP(&f.baselines, "baseline", "b", nil, "directory of released baseline schemas (repeatable)")
	flags.StringSliceVarP(&f.refs, "refs", "r", nil, "directory searched for referenced schemas (repeatable)")
	flags.StringVarP(&f.output, "output", "o", "", "directory for per-schema logs and the summary")
	flags.StringVar(&f.inventory, "inventory", "", "approval inventory file (JSON or YAML)")
	flags.IntVarP(&f.jobs, "jobs", "j", 0, "schemas audited concurrently (default from config)")
	flags.BoolVar(&f.failOnMissingBaseline, "fail-on-missing-baseline", false, "fail the run when a schema has no baseline")
	_ = cmd.MarkFlagRequired("input")
}

// request builds an audit request from the flags, filling gaps from the
// configured defaults.
func (f *auditFlags) request() (domain.AuditRequest, error) {
	if f.jobs < 0 {
		return domain.AuditRequest{}, fmt.Errorf("%w: --jobs must not be negative", domain.ErrInvalidInput)
	}
	req := domain.AuditRequest{
		InputPath:         f.input,
		ReferenceDirs:     f.refs,
		ReleasedDirs:      f.baselines,
		OutputDir:         f.output,
		InventoryPath:     f.inventory,
		Jobs:              f.jobs,
		NotFoundIsFailure: f.failOnMissingBaseline,
	}
	if settingsService == nil {
		return req, nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return req, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings.Audit.Apply(req), nil
}

var auditOpts auditFlags

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit schemas against rules, baselines and the approval inventory",
	Long: `Resolves every schema under --input and runs it through the four audit
stages: rule validation, baseline comparison, checksum verification and
approval status.

References are looked up in the input directory first, then in each --refs
directory in order. Baselines are the latest write-compatible schemas found
in the --baseline directories.

Exits with status 1 when the verdict is Failed.`,
	Example: `  ecaudit audit --input ./schemas --refs ./standard --baseline ./released --output ./out
  ecaudit audit -i Units.01.00.05.ecschema.xml -r ./standard --inventory SchemaInventory.json`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	auditOpts.register(auditCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	if auditor == nil {
		return errors.New("audit service not configured")
	}

	req, err := auditOpts.request()
	if err != nil {
		return err
	}

	run, err := auditor.Run(commandContext(cmd), req)
	if run != nil {
		renderRun(cmd.OutOrStdout(), run)
	}
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}
	if req.OutputDir != "" {
		cmd.Printf("\nReports written to %s\n", req.OutputDir)
	}
	if !run.Summary.Passed() {
		return domain.ErrAuditFailed
	}
	return nil
}
