package semver

import (
	"fmt"
	"regexp"
	"sort"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3.
type Version struct {
	v *mm.Version
}

// Constraint is a semantic version constraint.
//
// Examples:
// - ">=0.45.0 <1.0.0"
// - "^0.46.0"
type Constraint struct {
	c *mm.Constraints
}

// pinnedForm is the strict MAJOR.MINOR.PATCH form required for pinned
// component versions. Pre-release and build suffixes are not accepted:
// the version token is substituted verbatim into manifest fields and must
// stay exactly matchable.
var pinnedForm = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

// MalformedVersionError reports input rejected by ParsePinned.
type MalformedVersionError struct {
	Raw string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("semver: pinned version %q is not of the form MAJOR.MINOR.PATCH", e.Raw)
}

func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// ParsePinned parses raw as a pinned component version, rejecting anything
// that is not a plain three-part numeric version.
func ParsePinned(raw string) (Version, error) {
	if !pinnedForm.MatchString(raw) {
		return Version{}, &MalformedVersionError{Raw: raw}
	}
	return ParseVersion(raw)
}

// IsPinned reports whether raw is a valid pinned version string.
func IsPinned(raw string) bool {
	return pinnedForm.MatchString(raw)
}

func ParseConstraint(raw string) (Constraint, error) {
	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("semver: parse constraint %q: %w", raw, err)
	}
	return Constraint{c: c}, nil
}

func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func Satisfies(v Version, c Constraint) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// SortDescending orders raw version tags newest-first, dropping tags that do
// not parse. Used when presenting upstream release listings.
func SortDescending(raw []string) []string {
	type tagged struct {
		raw string
		v   Version
	}
	parsed := make([]tagged, 0, len(raw))
	for _, r := range raw {
		v, err := ParseVersion(r)
		if err != nil {
			continue
		}
		parsed = append(parsed, tagged{raw: r, v: v})
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		return Compare(parsed[i].v, parsed[j].v) > 0
	})
	out := make([]string, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, p.raw)
	}
	return out
}

// MaxSatisfying returns the highest version in candidates that satisfies c.
//
// If multiple versions are equal, the first encountered wins.
func MaxSatisfying(c Constraint, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !Satisfies(candidate, c) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
