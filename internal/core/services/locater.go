package services

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
	"github.com/custodia-labs/ecaudit/internal/logger"
)

// Locater finds the schema file that best satisfies a version request.
// It never modifies the directory lists it is given.
type Locater struct {
	fs      driven.FileSystem
	headers driven.HeaderReader
}

// NewLocater creates a locater. headers is used for files whose name
// carries no version and may be nil, in which case such files are ignored.
func NewLocater(fs driven.FileSystem, headers driven.HeaderReader) *Locater {
	return &Locater{fs: fs, headers: headers}
}

// Locate returns the best candidate for target in dirs, with its content
// loaded. A candidate that cannot be read is reported as not found.
func (l *Locater) Locate(ctx context.Context, target domain.VersionKey, policy domain.MatchPolicy, dirs []string) (*domain.FileCandidate, bool) {
	candidates := l.Candidates(ctx, target, policy, dirs)
	if len(candidates) == 0 {
		return nil, false
	}

	best := candidates[0]
	raw, err := l.fs.ReadFile(best.Path)
	if err != nil {
		logger.Debug("locate %s: cannot read %s: %v", target, best.Path, err)
		return nil, false
	}
	best.Raw = raw
	return &best, true
}

// Candidates lists every file in dirs whose key matches target under policy.
// The best match comes first: highest version, then earliest directory.
func (l *Locater) Candidates(ctx context.Context, target domain.VersionKey, policy domain.MatchPolicy, dirs []string) []domain.FileCandidate {
	var found []domain.FileCandidate
	for i, dir := range dirs {
		if ctx.Err() != nil {
			return nil
		}
		paths, err := l.fs.ReadDir(dir)
		if err != nil {
			logger.Debug("locate %s: skipping %s: %v", target, dir, err)
			continue
		}
		for _, path := range paths {
			key, ok := l.keyOf(path, target)
			if !ok || !domain.Matches(key, target, policy) {
				continue
			}
			found = append(found, domain.FileCandidate{Key: key, Path: path, DirIndex: i})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if c := found[i].Key.Version.Compare(found[j].Key.Version); c != 0 {
			return c > 0
		}
		return found[i].DirIndex < found[j].DirIndex
	})
	return found
}

// keyOf derives the key of a schema file from its name, falling back to
// the header for unversioned names that match the target.
func (l *Locater) keyOf(path string, target domain.VersionKey) (domain.VersionKey, bool) {
	base := filepath.Base(path)
	stem, ok := trimSchemaSuffix(base)
	if !ok {
		return domain.VersionKey{}, false
	}

	if key, ok := ParseSchemaFileName(stem); ok {
		return key, true
	}

	if l.headers == nil || !strings.EqualFold(stem, target.Name) {
		return domain.VersionKey{}, false
	}
	raw, err := l.fs.ReadFile(path)
	if err != nil {
		return domain.VersionKey{}, false
	}
	header, err := l.headers.ReadHeader(raw)
	if err != nil {
		logger.Debug("locate %s: unreadable header in %s: %v", target, path, err)
		return domain.VersionKey{}, false
	}
	if !header.Key.SameIdentity(target) || header.Key.Version.Validate() != nil {
		return domain.VersionKey{}, false
	}
	return header.Key, true
}

// ParseSchemaFileName parses a file name without its suffix, in the form
// Name.RR.WW.MM or the legacy Name.RR.mm.
func ParseSchemaFileName(stem string) (domain.VersionKey, bool) {
	parts := strings.Split(stem, ".")

	var name, version string
	switch {
	case len(parts) >= 4 && allDigits(parts[len(parts)-3:]):
		name = strings.Join(parts[:len(parts)-3], ".")
		version = strings.Join(parts[len(parts)-3:], ".")
	case len(parts) >= 3 && allDigits(parts[len(parts)-2:]):
		name = strings.Join(parts[:len(parts)-2], ".")
		version = strings.Join(parts[len(parts)-2:], ".")
	default:
		return domain.VersionKey{}, false
	}

	key, err := domain.ParseVersionKey(name, version)
	if err != nil {
		return domain.VersionKey{}, false
	}
	return key, true
}

func trimSchemaSuffix(name string) (string, bool) {
	suffix := domain.SchemaFileSuffix
	if len(name) <= len(suffix) || !strings.EqualFold(name[len(name)-len(suffix):], suffix) {
		return "", false
	}
	return name[:len(name)-len(suffix)], true
}

func allDigits(parts []string) bool {
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
