package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage audit defaults and logging settings",
	Long: `View and change the settings stored in config.toml.

Settings provide defaults for audit runs; command-line flags override them.
ECAUDIT_* environment variables override the file, for example
ECAUDIT_INVENTORY_PATH or ECAUDIT_LOG_LEVEL.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a setting",
	Long: `Set one setting. Lists are comma separated.

Keys:
  audit.reference_dirs            - directories searched for referenced schemas
  audit.released_dirs             - directories of released baseline schemas
  audit.output_dir                - directory for run artifacts
  audit.jobs                      - schemas audited concurrently
  audit.fail_on_missing_baseline  - fail the run when a baseline is missing
  inventory.path                  - approval inventory file
  log.level                       - debug, info, warn or error
  log.format                      - console or json`,
	Example: `  ecaudit config set audit.reference_dirs ./standard,./shared
  ecaudit config set audit.jobs 4`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Prompt for every setting in turn. Press Enter to keep the current value.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigWizard,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configWizardCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")

	section := ""
	for _, key := range settingsService.Keys() {
		if s, _, _ := strings.Cut(key, "."); s != section {
			section = s
			cmd.Println()
			cmd.Printf("[%s]\n", section)
		}
		value := settingValue(settings, key)
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %s = %s\n", key, value)
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Println()
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("%s = %s\n", args[0], args[1])
	return nil
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("ecaudit Setup Wizard")
	cmd.Println("====================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())
	changed := 0
	for _, key := range settingsService.Keys() {
		current := settingValue(settings, key)
		cmd.Printf("%s [%s]: ", key, current)
		input := readLine(reader)
		if input == "" || input == current {
			continue
		}
		if err := settingsService.Set(key, input); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
		changed++
	}

	cmd.Println()
	cmd.Printf("Setup complete. %d setting%s changed.\n", changed, plural(changed, "", "s"))
	return nil
}

// settingValue renders a setting the way `config set` accepts it.
func settingValue(s *domain.AppSettings, key string) string {
	switch key {
	case "audit.reference_dirs":
		return strings.Join(s.Audit.ReferenceDirs, ",")
	case "audit.released_dirs":
		return strings.Join(s.Audit.ReleasedDirs, ",")
	case "audit.output_dir":
		return s.Audit.OutputDir
	case "audit.jobs":
		return strconv.Itoa(s.Audit.Jobs)
	case "audit.fail_on_missing_baseline":
		return strconv.FormatBool(s.Audit.FailOnMissingBaseline)
	case "inventory.path":
		return s.Audit.InventoryPath
	case "log.level":
		return s.Log.Level
	case "log.format":
		return s.Log.Format.String()
	default:
		return ""
	}
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
