// Package version maintains the pinned component versions embedded in
// manifest files.
//
// A pinned version is not kept in a separate state file: it lives as a
// matchable token inside specific manifest fields. Each component therefore
// declares exactly which files carry its token and the literal marker the
// token follows, and the rewriter refuses to touch anything until every
// registered file has been validated.
package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/streamforge-platform/streamforge/internal/semver"
)

// Component describes one installable component whose version is pinned
// inside manifest files.
type Component struct {
	// Name is the component identifier used on the CLI and in stack
	// configuration, e.g. "strimzi".
	Name string `json:"name"`
	// Repo identifies the component in the release index, e.g.
	// "strimzi/strimzi-kafka-operator".
	Repo string `json:"repo"`
	// Files are the manifest files, relative to the stack root, registered
	// to carry this component's version token. Every one of them must
	// contain the token or a rewrite aborts.
	Files []string `json:"files"`
	// Marker is the literal text immediately preceding the version token,
	// e.g. "releases/download/". It anchors token discovery; plain
	// occurrences of the version string elsewhere are still rewritten.
	Marker string `json:"marker"`
}

func (c Component) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("component: name is required")
	}
	if len(c.Files) == 0 {
		return fmt.Errorf("component %q: at least one registered file is required", c.Name)
	}
	if strings.TrimSpace(c.Marker) == "" {
		return fmt.Errorf("component %q: version token marker is required", c.Name)
	}
	return nil
}

// tokenPattern matches the marker followed by a three-part version,
// capturing the version.
func (c Component) tokenPattern() *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(c.Marker) + `([0-9]+\.[0-9]+\.[0-9]+)`)
}

// FindToken returns the version token following the component's marker in
// content, or "" if the marker is absent.
func (c Component) FindToken(content string) string {
	m := c.tokenPattern().FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return m[1]
}

// Pinned is a (component, version) pair recorded in a manifest set.
type Pinned struct {
	Component string
	Version   string
}

// NewPinned validates raw as a strict MAJOR.MINOR.PATCH version and binds it
// to component. Malformed input is rejected before any apply or rewrite
// proceeds.
func NewPinned(component, raw string) (Pinned, error) {
	if strings.TrimSpace(component) == "" {
		return Pinned{}, fmt.Errorf("pinned version: component name is required")
	}
	if _, err := semver.ParsePinned(raw); err != nil {
		return Pinned{}, err
	}
	return Pinned{Component: component, Version: raw}, nil
}

func (p Pinned) String() string {
	return fmt.Sprintf("%s@%s", p.Component, p.Version)
}
