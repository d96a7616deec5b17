package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Bits recorded in Version.invalid for components that failed to parse.
const (
	invalidRead uint8 = 1 << iota
	invalidWrite
	invalidMinor
)

// Version is the numeric part of a schema key: read.write.minor.
//
// A read version change breaks readers, a write version change breaks
// writers, and a minor change is additive.
type Version struct {
	Read  uint32
	Write uint32
	Minor uint32

	invalid uint8
}

// NewVersion builds a fully valid version.
func NewVersion(read, write, minor uint32) Version {
	return Version{Read: read, Write: write, Minor: minor}
}

// ParseCurrent parses the current three-part form "RR.WW.MM".
func ParseCurrent(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q must have three components", ErrInvalidVersionString, s)
	}

	var nums [3]uint32
	names := [3]string{"read", "write", "minor"}
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q has non-numeric %s version", ErrInvalidVersionString, s, names[i])
		}
		nums[i] = uint32(n)
	}
	return NewVersion(nums[0], nums[1], nums[2]), nil
}

// ParseLegacy parses the legacy two-part form "RR.mm" into (RR, 0, mm).
//
// A missing read or minor component is an error. A component that is
// present but not numeric is NOT an error: the field is left at zero and
// marked invalid, and callers must check Valid before using the result.
// Components after the second are ignored.
func ParseLegacy(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if parts[0] == "" {
		return Version{}, fmt.Errorf("%w: %q is missing the read version", ErrInvalidVersionString, s)
	}
	if len(parts) < 2 || parts[1] == "" {
		return Version{}, fmt.Errorf("%w: %q is missing the minor version", ErrInvalidVersionString, s)
	}

	var v Version
	if n, err := strconv.ParseUint(parts[0], 10, 32); err == nil {
		v.Read = uint32(n)
	} else {
		v.invalid |= invalidRead
	}
	if n, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
		v.Minor = uint32(n)
	} else {
		v.invalid |= invalidMinor
	}
	return v, nil
}

// ParseVersion accepts either form: three components are parsed as current,
// two as legacy. The result is always validated.
func ParseVersion(s string) (Version, error) {
	var (
		v   Version
		err error
	)
	if strings.Count(s, ".") >= 2 {
		v, err = ParseCurrent(s)
	} else {
		v, err = ParseLegacy(s)
	}
	if err != nil {
		return Version{}, err
	}
	if err := v.Validate(); err != nil {
		return Version{}, fmt.Errorf("%w (%q)", err, s)
	}
	return v, nil
}

// Valid reports whether every component parsed.
func (v Version) Valid() bool {
	return v.invalid == 0
}

// InvalidFields names the components that failed to parse.
func (v Version) InvalidFields() []string {
	var fields []string
	if v.invalid&invalidRead != 0 {
		fields = append(fields, "read")
	}
	if v.invalid&invalidWrite != 0 {
		fields = append(fields, "write")
	}
	if v.invalid&invalidMinor != 0 {
		fields = append(fields, "minor")
	}
	return fields
}

// Validate converts a partially parsed version into ErrInvalidVersionString.
func (v Version) Validate() error {
	if v.Valid() {
		return nil
	}
	return fmt.Errorf("%w: non-numeric %s version", ErrInvalidVersionString, strings.Join(v.InvalidFields(), ", "))
}

// Compare orders versions lexicographically over (read, write, minor).
func (v Version) Compare(o Version) int {
	switch {
	case v.Read != o.Read:
		return cmpUint(v.Read, o.Read)
	case v.Write != o.Write:
		return cmpUint(v.Write, o.Write)
	default:
		return cmpUint(v.Minor, o.Minor)
	}
}

// String returns the zero-padded form "RR.WW.MM".
func (v Version) String() string {
	return fmt.Sprintf("%02d.%02d.%02d", v.Read, v.Write, v.Minor)
}

func cmpUint(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// VersionKey identifies a schema by name and version.
// Keys are values; treat them as immutable once constructed.
type VersionKey struct {
	Name string
	Version
}

// NewVersionKey builds a key, rejecting an empty name or invalid version.
func NewVersionKey(name string, v Version) (VersionKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return VersionKey{}, fmt.Errorf("%w: schema name is empty", ErrInvalidInput)
	}
	if err := v.Validate(); err != nil {
		return VersionKey{}, err
	}
	return VersionKey{Name: name, Version: v}, nil
}

// ParseVersionKey builds a key from a name and version text in either form.
func ParseVersionKey(name, version string) (VersionKey, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return VersionKey{}, err
	}
	return NewVersionKey(name, v)
}

// MustVersionKey is NewVersionKey for literals. It panics on invalid input.
func MustVersionKey(name string, read, write, minor uint32) VersionKey {
	k, err := NewVersionKey(name, NewVersion(read, write, minor))
	if err != nil {
		panic(err)
	}
	return k
}

// SameIdentity reports whether both keys name the same schema, ignoring case and version.
func (k VersionKey) SameIdentity(o VersionKey) bool {
	return strings.EqualFold(k.Name, o.Name)
}

// Identity is the case-folded schema name.
func (k VersionKey) Identity() string {
	return strings.ToLower(k.Name)
}

// ID is a stable cache key: case-folded name plus version.
func (k VersionKey) ID() string {
	return k.Identity() + "@" + k.Version.String()
}

// String returns "Name.RR.WW.MM".
func (k VersionKey) String() string {
	return k.Name + "." + k.Version.String()
}

// CompareKeys orders keys by version only; names are not compared.
func CompareKeys(a, b VersionKey) int {
	return a.Version.Compare(b.Version)
}

// Matches reports whether candidate satisfies target under policy.
// Invalid candidates never match.
func Matches(candidate, target VersionKey, policy MatchPolicy) bool {
	if !candidate.Valid() || !candidate.SameIdentity(target) {
		return false
	}
	switch policy {
	case MatchExact:
		return candidate.Version.Compare(target.Version) == 0
	case MatchLatest:
		return true
	case MatchLatestWriteCompatible:
		return candidate.Read == target.Read
	default:
		return false
	}
}
