package domain

import (
	"fmt"
	"strings"
)

// MatchPolicy decides which candidate versions satisfy a version request.
type MatchPolicy int

const (
	// MatchExact requires full read/write/minor equality.
	MatchExact MatchPolicy = iota

	// MatchLatest accepts any version of the same schema, preferring the highest.
	MatchLatest

	// MatchLatestWriteCompatible accepts any version with the same read version,
	// preferring the highest. Write and minor upgrades are compatible.
	MatchLatestWriteCompatible
)

// String returns the policy name used in config and CLI flags.
func (p MatchPolicy) String() string {
	switch p {
	case MatchExact:
		return "exact"
	case MatchLatest:
		return "latest"
	case MatchLatestWriteCompatible:
		return "latest-write-compatible"
	default:
		return fmt.Sprintf("MatchPolicy(%d)", int(p))
	}
}

// ParseMatchPolicy parses a policy name. Underscores and case are ignored.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "exact":
		return MatchExact, nil
	case "latest":
		return MatchLatest, nil
	case "latest-write-compatible", "write-compatible":
		return MatchLatestWriteCompatible, nil
	default:
		return MatchExact, fmt.Errorf("%w: unknown match policy %q", ErrInvalidInput, s)
	}
}
