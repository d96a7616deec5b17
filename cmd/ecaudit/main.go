// Command ecaudit audits EC schema documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ecaudit/internal/adapters/driven/compare"
	"github.com/custodia-labs/ecaudit/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ecaudit/internal/adapters/driven/ecxml"
	"github.com/custodia-labs/ecaudit/internal/adapters/driven/fsys"
	"github.com/custodia-labs/ecaudit/internal/adapters/driven/inventory"
	"github.com/custodia-labs/ecaudit/internal/adapters/driven/report"
	"github.com/custodia-labs/ecaudit/internal/adapters/driven/rules"
	"github.com/custodia-labs/ecaudit/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ecaudit/internal/adapters/driving/cli"
	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/services"
	"github.com/custodia-labs/ecaudit/internal/logger"
	"github.com/custodia-labs/ecaudit/internal/metrics"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is normal; variables may come from the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(wire)
	defer func() {
		if err := cli.Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}()

	err := cli.Execute(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrAuditFailed):
		return 1
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
}

// wire builds the adapters and services for one command invocation.
func wire(opts cli.GlobalOptions) (*cli.Dependencies, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := logger.SetLevel(settings.Log.Level); err != nil {
		logger.Warn("log level %q: %v", settings.Log.Level, err)
	}
	if err := logger.SetFormat(settings.Log.Format.String()); err != nil {
		logger.Warn("log format %q: %v", settings.Log.Format, err)
	}

	dataDir := ""
	if opts.ConfigDir != "" {
		dataDir = filepath.Join(opts.ConfigDir, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	checker, err := rules.NewDefaultChecker()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build rules: %w", err)
	}

	fs := fsys.New()
	locater := services.NewLocater(fs, ecxml.HeaderReader{})
	resolver := services.NewResolver(fs, locater, ecxml.NewHost())
	auditMetrics := metrics.NewMetrics()

	auditService := services.NewAuditService(
		fs,
		resolver,
		locater,
		checker,
		compare.New(),
		ecxml.NewChecksummer(),
		inventory.NewLoader(),
		report.NewWriter(auditMetrics),
		store,
		auditMetrics,
	)

	return &cli.Dependencies{
		Auditor:  auditService,
		Resolver: resolver,
		History:  services.NewHistoryService(store),
		Settings: settingsService,
		Watcher:  fsys.NewWatcher(domain.SchemaFileSuffix),
		Close:    store.Close,
	}, nil
}
