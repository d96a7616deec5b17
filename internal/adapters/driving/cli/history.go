package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
	historyKeep  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded audit runs",
	Long: `Every completed audit run is recorded in the local history database.
Without a subcommand the most recent runs are listed.`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one audit run with its schema records",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the most recent audit runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of runs (0 for all)")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of runs (0 for all)")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 20, "number of recent runs to keep")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	runs, err := historyService.List(commandContext(cmd), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if historyJSON {
		return printJSON(cmd, runs)
	}

	if len(runs) == 0 {
		cmd.Println("No audit runs recorded.")
		return nil
	}

	p := newPainter(cmd.OutOrStdout())
	for i := range runs {
		run := &runs[i]
		cmd.Printf("%s  %s  %s  %3d schemas  %s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			p.badge(run.Summary.Passed()),
			run.Summary.Total,
			run.Request.InputPath,
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	run, err := historyService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if historyJSON {
		return printJSON(cmd, run)
	}

	out := cmd.OutOrStdout()
	renderRun(out, run)
	if len(run.Records) > 0 {
		cmd.Println()
		cmd.Println("Records")
		cmd.Println("=======")
	}
	for i := range run.Records {
		renderRecord(out, &run.Records[i])
	}
	return nil
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	removed, err := historyService.Prune(commandContext(cmd), historyKeep)
	cmd.Printf("Removed %d run%s.\n", removed, plural(removed, "", "s"))
	if err != nil {
		return fmt.Errorf("prune incomplete: %w", err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
