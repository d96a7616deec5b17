package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
)

var (
	resolveRefs       []string
	resolveName       string
	resolveVersion    string
	resolvePolicy     string
	resolveCandidates bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [file]",
	Short: "Print the dependency-ordered load list of a schema",
	Long: `Resolves a schema and its references and prints them in load order,
dependencies first and the requested schema last.

Give a schema file, or a --name and --version to locate in the --refs
directories. With --candidates, every file matching the version request is
listed best match first instead of resolving.

Policies:
  exact                    - name and version must match
  latest                   - newest version with the name
  latest-write-compatible  - newest version with the same read version`,
	Example: `  ecaudit resolve ./schemas/AecUnits.01.00.03.ecschema.xml --refs ./standard
  ecaudit resolve --name Units --version 01.00.02 --policy latest-write-compatible --refs ./standard
  ecaudit resolve --name Units --version 1.0.0 --policy latest --candidates --refs ./standard`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	flags := resolveCmd.Flags()
	flags.StringSliceVarP(&resolveRefs, "refs", "r", nil, "directory searched for schemas (repeatable)")
	flags.StringVar(&resolveName, "name", "", "schema name to locate")
	flags.StringVar(&resolveVersion, "version", "", "schema version, RR.WW.MM or legacy RR.MM")
	flags.StringVar(&resolvePolicy, "policy", domain.MatchExact.String(), "version match policy")
	flags.BoolVar(&resolveCandidates, "candidates", false, "list matching files instead of resolving")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	if schemaResolver == nil {
		return errors.New("resolver not configured")
	}

	dirs, err := resolveDirs()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	if len(args) == 1 {
		if resolveName != "" || resolveCandidates {
			return fmt.Errorf("%w: a schema file cannot be combined with --name or --candidates", domain.ErrInvalidInput)
		}
		order, err := schemaResolver.ResolveFile(ctx, args[0], dirs)
		if err != nil {
			return fmt.Errorf("resolve failed: %w", err)
		}
		renderResolved(cmd.OutOrStdout(), order)
		return nil
	}

	key, policy, err := resolveTarget()
	if err != nil {
		return err
	}

	if resolveCandidates {
		found := schemaResolver.Candidates(ctx, key, policy, dirs)
		if len(found) == 0 {
			cmd.Printf("No schema matches %s (%s).\n", key, policy)
			return nil
		}
		for i := range found {
			cmd.Printf("%3d. %s  %s\n", i+1, found[i].Key, found[i].Path)
		}
		return nil
	}

	order, err := schemaResolver.Resolve(ctx, key, policy, dirs)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}
	renderResolved(cmd.OutOrStdout(), order)
	return nil
}

func resolveTarget() (domain.VersionKey, domain.MatchPolicy, error) {
	if resolveName == "" || resolveVersion == "" {
		return domain.VersionKey{}, 0, fmt.Errorf("%w: give a schema file or both --name and --version", domain.ErrInvalidInput)
	}
	key, err := domain.ParseVersionKey(resolveName, resolveVersion)
	if err != nil {
		return domain.VersionKey{}, 0, err
	}
	policy, err := domain.ParseMatchPolicy(resolvePolicy)
	if err != nil {
		return domain.VersionKey{}, 0, err
	}
	return key, policy, nil
}

// resolveDirs returns the --refs directories, or the configured reference
// directories when none were given.
func resolveDirs() ([]string, error) {
	if len(resolveRefs) > 0 || settingsService == nil {
		return resolveRefs, nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings.Audit.ReferenceDirs, nil
}
