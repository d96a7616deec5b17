package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyReferenceDirs = "audit.reference_dirs"
	keyReleasedDirs  = "audit.released_dirs"
	keyOutputDir     = "audit.output_dir"
	keyJobs          = "audit.jobs"
	keyFailOnMissing = "audit.fail_on_missing_baseline"
	keyInventoryPath = "inventory.path"
	keyLogLevel      = "log.level"
	keyLogFormat     = "log.format"
)

// settingKind is how a config value is parsed from text.
type settingKind int

const (
	kindString settingKind = iota
	kindList
	kindInt
	kindBool
	kindLevel
	kindFormat
)

// settingKeys lists the supported keys in display order.
var settingKeys = []struct {
	key  string
	kind settingKind
}{
	{keyReferenceDirs, kindList},
	{keyReleasedDirs, kindList},
	{keyOutputDir, kindString},
	{keyJobs, kindInt},
	{keyFailOnMissing, kindBool},
	{keyInventoryPath, kindString},
	{keyLogLevel, kindLevel},
	{keyLogFormat, kindFormat},
}

var logLevels = []string{"debug", "info", "warn", "error"}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Audit: domain.AuditSettings{
			ReferenceDirs:         s.getSlice(keyReferenceDirs, defaults.Audit.ReferenceDirs),
			ReleasedDirs:          s.getSlice(keyReleasedDirs, defaults.Audit.ReleasedDirs),
			OutputDir:             s.getString(keyOutputDir, defaults.Audit.OutputDir),
			InventoryPath:         s.getString(keyInventoryPath, defaults.Audit.InventoryPath),
			Jobs:                  s.getInt(keyJobs, defaults.Audit.Jobs),
			FailOnMissingBaseline: s.getBool(keyFailOnMissing, defaults.Audit.FailOnMissingBaseline),
		},
		Log: domain.LogSettings{
			Level:  s.getLevel(defaults.Log.Level),
			Format: s.getFormat(defaults.Log.Format),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyReferenceDirs, settings.Audit.ReferenceDirs},
		{keyReleasedDirs, settings.Audit.ReleasedDirs},
		{keyOutputDir, settings.Audit.OutputDir},
		{keyInventoryPath, settings.Audit.InventoryPath},
		{keyJobs, settings.Audit.Jobs},
		{keyFailOnMissing, settings.Audit.FailOnMissingBaseline},
		{keyLogLevel, settings.Log.Level},
		{keyLogFormat, settings.Log.Format.String()},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set parses value for key and stores it.
func (s *SettingsService) Set(key, value string) error {
	for _, k := range settingKeys {
		if k.key != key {
			continue
		}
		parsed, err := parseSetting(k.kind, value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
		}
		return s.configStore.Set(key, parsed)
	}
	return fmt.Errorf("%w: unknown setting %q (known: %s)", domain.ErrInvalidInput, key, strings.Join(s.Keys(), ", "))
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindList:
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("want a positive integer, got %q", value)
		}
		return n, nil
	case kindBool:
		return strconv.ParseBool(value)
	case kindLevel:
		level := strings.ToLower(value)
		if !validLevel(level) {
			return nil, fmt.Errorf("want one of %s, got %q", strings.Join(logLevels, ", "), value)
		}
		return level, nil
	case kindFormat:
		format := domain.LogFormat(strings.ToLower(value))
		if !format.IsValid() {
			return nil, fmt.Errorf("unknown log format %q", value)
		}
		return format.String(), nil
	default:
		return value, nil
	}
}

// Keys returns the supported config keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for _, k := range settingKeys {
		keys = append(keys, k.key)
	}
	return keys
}

// Validate checks that the current settings are usable.
func (s *SettingsService) Validate() error {
	var errs []error
	if _, ok := s.configStore.Get(keyJobs); ok && s.configStore.GetInt(keyJobs) < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", keyJobs))
	}
	if level := s.configStore.GetString(keyLogLevel); level != "" && !validLevel(strings.ToLower(level)) {
		errs = append(errs, fmt.Errorf("%s: unknown level %q", keyLogLevel, level))
	}
	if format := s.configStore.GetString(keyLogFormat); format != "" && !domain.LogFormat(format).IsValid() {
		errs = append(errs, fmt.Errorf("%s: unknown format %q", keyLogFormat, format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getSlice(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val < 1 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getLevel(defaultVal string) string {
	val := strings.ToLower(s.configStore.GetString(keyLogLevel))
	if !validLevel(val) {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFormat(defaultVal domain.LogFormat) domain.LogFormat {
	format := domain.LogFormat(s.configStore.GetString(keyLogFormat))
	if !format.IsValid() {
		return defaultVal
	}
	return format
}

func validLevel(level string) bool {
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}
