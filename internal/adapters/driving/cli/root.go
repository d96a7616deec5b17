// Package cli provides the cobra command tree for ecaudit.
//
// Commands reach the core only through driving ports held in package-level
// variables. Configure sets them directly; SetBootstrap defers wiring until
// the global flags are parsed, so --config-dir can choose the config store.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ecaudit/internal/core/ports/driving"
	"github.com/custodia-labs/ecaudit/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// SchemaWatcher reports batches of changed schema files under a set of roots.
type SchemaWatcher interface {
	Watch(ctx context.Context, roots []string) (<-chan []string, error)
}

// Dependencies holds the services the commands use.
type Dependencies struct {
	Auditor  driving.Auditor
	Resolver driving.SchemaResolver
	History  driving.HistoryService
	Settings driving.SettingsService
	Watcher  SchemaWatcher

	// Close releases resources held by the services. Optional.
	Close func() error
}

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	Verbose   bool
	ConfigDir string
	NoColor   bool
}

// Bootstrap builds the dependencies once the global flags are known.
type Bootstrap func(opts GlobalOptions) (*Dependencies, error)

var (
	auditor         driving.Auditor
	schemaResolver  driving.SchemaResolver
	historyService  driving.HistoryService
	settingsService driving.SettingsService
	schemaWatcher   SchemaWatcher
	closeServices   func() error

	bootstrap Bootstrap
	globals   GlobalOptions
)

var rootCmd = &cobra.Command{
	Use:   "ecaudit",
	Short: "Audit EC schemas against rules, baselines and an approval inventory",
	Long: `ecaudit resolves EC schema documents and their references, then runs
each schema through four audit stages: rule validation, comparison with the
released baseline, checksum verification and approval status.

The run verdict is Passed only when no stage failed for any schema.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&globals.Verbose, "verbose", "v", false, "log resolution and stage progress")
	flags.StringVar(&globals.ConfigDir, "config-dir", "", "configuration directory (default ~/.ecaudit)")
	flags.BoolVar(&globals.NoColor, "no-color", false, "disable coloured output")
}

// Configure sets the services used by the commands.
func Configure(deps *Dependencies) {
	if deps == nil {
		deps = &Dependencies{}
	}
	auditor = deps.Auditor
	schemaResolver = deps.Resolver
	historyService = deps.History
	settingsService = deps.Settings
	schemaWatcher = deps.Watcher
	closeServices = deps.Close
}

// SetBootstrap registers the function that wires services before a command runs.
func SetBootstrap(fn Bootstrap) {
	bootstrap = fn
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(globals.Verbose)
	if bootstrap == nil {
		return nil
	}
	deps, err := bootstrap(globals)
	if err != nil {
		return err
	}
	Configure(deps)
	return nil
}

// Close releases the configured services. It is safe to call more than once
// and covers commands that returned an error before teardown ran.
func Close() error {
	return teardown(nil, nil)
}

func teardown(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	fn := closeServices
	closeServices = nil
	return fn()
}

// commandContext returns the command's context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
