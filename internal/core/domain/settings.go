package domain

const unknownDescription = "Unknown"

// LogFormat selects how log lines are rendered.
type LogFormat string

// Available log formats.
const (
	// LogFormatConsole renders human-readable lines for terminals.
	LogFormatConsole LogFormat = "console"

	// LogFormatJSON renders one JSON object per line for log shippers.
	LogFormatJSON LogFormat = "json"
)

// IsValid returns true if the log format is recognised.
func (f LogFormat) IsValid() bool {
	switch f {
	case LogFormatConsole, LogFormatJSON:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f LogFormat) String() string {
	return string(f)
}

// Description returns a human-readable description of the format.
func (f LogFormat) Description() string {
	switch f {
	case LogFormatConsole:
		return "Console (human readable)"
	case LogFormatJSON:
		return "JSON (structured)"
	default:
		return unknownDescription
	}
}

// AllLogFormats returns all available log formats.
func AllLogFormats() []LogFormat {
	return []LogFormat{LogFormatConsole, LogFormatJSON}
}

// AuditSettings holds defaults for audit runs. CLI flags override them.
type AuditSettings struct {
	// ReferenceDirs are searched for referenced schemas.
	ReferenceDirs []string

	// ReleasedDirs hold released baseline schemas.
	ReleasedDirs []string

	// OutputDir receives run artifacts.
	OutputDir string

	// InventoryPath is the approval inventory file.
	InventoryPath string

	// Jobs bounds concurrent schema audits.
	Jobs int

	// FailOnMissingBaseline makes a NotFound compare stage fail the verdict.
	FailOnMissingBaseline bool
}

// LogSettings holds logger configuration.
type LogSettings struct {
	// Level is one of debug, info, warn, error. Verbose mode lowers it to debug.
	Level string

	// Format is the rendering format.
	Format LogFormat
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Audit holds audit run defaults.
	Audit AuditSettings

	// Log holds logger settings.
	Log LogSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Directories are left empty; runs must name their inputs.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Audit: AuditSettings{
			Jobs: 1,
		},
		Log: LogSettings{
			Level:  "warn",
			Format: LogFormatConsole,
		},
	}
}

// Apply fills unset fields of req from the settings. Explicit request values win.
func (s AuditSettings) Apply(req AuditRequest) AuditRequest {
	if len(req.ReferenceDirs) == 0 {
		req.ReferenceDirs = append([]string(nil), s.ReferenceDirs...)
	}
	if len(req.ReleasedDirs) == 0 {
		req.ReleasedDirs = append([]string(nil), s.ReleasedDirs...)
	}
	if req.OutputDir == "" {
		req.OutputDir = s.OutputDir
	}
	if req.InventoryPath == "" {
		req.InventoryPath = s.InventoryPath
	}
	if req.Jobs == 0 {
		req.Jobs = s.Jobs
	}
	if s.FailOnMissingBaseline {
		req.NotFoundIsFailure = true
	}
	return req
}
