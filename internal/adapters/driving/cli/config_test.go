package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ecaudit/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/services"
)

func newSettings(t *testing.T) (*services.SettingsService, *memory.ConfigStore) {
	t.Helper()
	store := memory.NewConfigStore()
	svc := services.NewSettingsService(store)
	withServices(t, &Dependencies{Settings: svc})
	return svc, store
}

func TestConfigCmd_Show(t *testing.T) {
	svc, _ := newSettings(t)
	require.NoError(t, svc.Set("audit.reference_dirs", "std, shared"))
	require.NoError(t, svc.Set("log.format", "json"))

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[audit]")
	assert.Contains(t, out, "[inventory]")
	assert.Contains(t, out, "[log]")
	assert.Contains(t, out, "audit.reference_dirs = std,shared")
	assert.Contains(t, out, "audit.jobs = 1")
	assert.Contains(t, out, "audit.output_dir = (not set)")
	assert.Contains(t, out, "log.level = warn")
	assert.Contains(t, out, "log.format = json")
	assert.NotContains(t, out, "Warning")
}

func TestConfigCmd_ShowWarnsOnInvalidStoredValues(t *testing.T) {
	_, store := newSettings(t)
	require.NoError(t, store.Set("log.level", "loud"))

	out, err := execute(t, "config")

	require.NoError(t, err)
	assert.Contains(t, out, `Warning: invalid input: log.level: unknown level "loud"`)
}

func TestConfigCmd_Set(t *testing.T) {
	svc, _ := newSettings(t)

	out, err := execute(t, "config", "set", "audit.jobs", "6")

	require.NoError(t, err)
	assert.Contains(t, out, "audit.jobs = 6")
	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 6, settings.Audit.Jobs)
}

func TestConfigCmd_SetErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"config", "set", "search.mode", "hybrid"}},
		{"bad int", []string{"config", "set", "audit.jobs", "zero"}},
		{"bad level", []string{"config", "set", "log.level", "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newSettings(t)

			_, err := execute(t, tt.args...)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	t.Run("missing value", func(t *testing.T) {
		newSettings(t)

		_, err := execute(t, "config", "set", "audit.jobs")
		assert.Error(t, err)
	})
}

func TestConfigCmd_Wizard(t *testing.T) {
	svc, _ := newSettings(t)

	// One answer per key in display order; blank keeps the current value.
	answers := strings.Join([]string{
		"std,shared", // audit.reference_dirs
		"",           // audit.released_dirs
		"out",        // audit.output_dir
		"1",          // audit.jobs, unchanged
		"true",       // audit.fail_on_missing_baseline
		"",           // inventory.path
		"info",       // log.level
		"",           // log.format
	}, "\n") + "\n"

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader(answers))
	rootCmd.SetArgs([]string{"config", "wizard"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
	}()

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, buf.String(), "audit.jobs [1]: ")
	assert.Contains(t, buf.String(), "Setup complete. 4 settings changed.")

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"std", "shared"}, settings.Audit.ReferenceDirs)
	assert.Equal(t, "out", settings.Audit.OutputDir)
	assert.True(t, settings.Audit.FailOnMissingBaseline)
	assert.Equal(t, "info", settings.Log.Level)
	assert.Equal(t, domain.LogFormatConsole, settings.Log.Format)
}

func TestConfigCmd_NotConfigured(t *testing.T) {
	withServices(t, nil)

	_, err := execute(t, "config", "show")
	assert.EqualError(t, err, "settings service not configured")
}

func TestSettingValue_UnknownKey(t *testing.T) {
	s := domain.DefaultAppSettings()
	assert.Empty(t, settingValue(&s, "search.mode"))
}

func TestReadLine(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("  first  \nsecond"))

	assert.Equal(t, "first", readLine(reader))
	assert.Equal(t, "second", readLine(reader))
	assert.Equal(t, "", readLine(reader))
}
