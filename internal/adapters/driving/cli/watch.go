package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/logger"
)

var watchOpts auditFlags

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-audit schemas whenever they change",
	Long: `Runs an audit like the audit command, then watches the input and
reference directories and re-runs the audit each time a schema file is
created, changed or removed.

A failed verdict does not stop watching. Press Ctrl+C to exit.`,
	Example: `  ecaudit watch --input ./schemas --refs ./standard --baseline ./released`,
	Args:    cobra.NoArgs,
	RunE:    runWatch,
}

func init() {
	watchOpts.register(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if auditor == nil {
		return errors.New("audit service not configured")
	}
	if schemaWatcher == nil {
		return errors.New("watcher not configured")
	}

	req, err := watchOpts.request()
	if err != nil {
		return err
	}
	roots, err := watchRoots(req)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	changes, err := schemaWatcher.Watch(ctx, roots)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	auditOnce(ctx, cmd, req)
	cmd.Printf("\nWatching %d director%s for changes...\n", len(roots), plural(len(roots), "y", "ies"))

	for batch := range changes {
		cmd.Printf("\n%d file%s changed\n", len(batch), plural(len(batch), "", "s"))
		for _, path := range batch {
			logger.Debug("changed: %s", path)
		}
		auditOnce(ctx, cmd, req)
	}
	return nil
}

// auditOnce runs one audit and prints the outcome. Errors are reported,
// not returned, so the watch loop keeps going.
func auditOnce(ctx context.Context, cmd *cobra.Command, req domain.AuditRequest) {
	run, err := auditor.Run(ctx, req)
	if run != nil {
		renderRun(cmd.OutOrStdout(), run)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		cmd.PrintErrf("audit failed: %v\n", err)
	}
}

// watchRoots returns the directories to watch: the input (or the directory
// holding an input file) followed by the reference directories.
func watchRoots(req domain.AuditRequest) ([]string, error) {
	info, err := os.Stat(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	first := req.InputPath
	if !info.IsDir() {
		first = filepath.Dir(req.InputPath)
	}

	roots := []string{first}
	seen := map[string]bool{filepath.Clean(first): true}
	for _, dir := range req.ReferenceDirs {
		if seen[filepath.Clean(dir)] {
			continue
		}
		seen[filepath.Clean(dir)] = true
		roots = append(roots, dir)
	}
	return roots, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
