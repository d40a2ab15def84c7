// Package config loads the stack file: the declarative description of
// components, their pinned-version file registrations, and the install
// units with their dependency edges and readiness conditions.
//
// All validation happens at load time so every configuration error is
// caught before anything touches the cluster or the manifest files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/streamforge-platform/streamforge/internal/graph"
	"github.com/streamforge-platform/streamforge/internal/unit"
	"github.com/streamforge-platform/streamforge/internal/version"
)

// DefaultFile is the stack file name looked up when none is given.
const DefaultFile = "stack.yaml"

// Stack is the loaded, validated configuration.
type Stack struct {
	// Root is the directory targets and component files are relative to.
	Root       string
	Components []version.Component
	Units      []unit.InstallUnit
}

type rawStack struct {
	Root       string              `json:"root"`
	Components []version.Component `json:"components"`
	Units      []rawUnit           `json:"units"`
}

type rawUnit struct {
	Name          string            `json:"name"`
	Target        string            `json:"target"`
	Readiness     unit.ConditionRef `json:"readiness"`
	Timeout       string            `json:"timeout"`
	Prerequisites []string          `json:"prerequisites"`
}

// Load reads and validates the stack file at path. Relative roots are
// resolved against the stack file's directory.
func Load(path string) (*Stack, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed rawStack
	if err := yaml.UnmarshalStrict(raw, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	root := parsed.Root
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(filepath.Dir(path), root)
	}

	stack := &Stack{Root: root}

	seen := map[string]bool{}
	for _, c := range parsed.Components {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("config: component %q declared twice", c.Name)
		}
		seen[c.Name] = true
		stack.Components = append(stack.Components, c)
	}

	for _, r := range parsed.Units {
		u := unit.InstallUnit{
			Name:          r.Name,
			Target:        r.Target,
			Readiness:     r.Readiness,
			Prerequisites: r.Prerequisites,
		}
		if r.Timeout != "" {
			d, err := time.ParseDuration(r.Timeout)
			if err != nil {
				return nil, fmt.Errorf("config: unit %q: parse timeout: %w", r.Name, err)
			}
			u.Timeout = d
		}
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		stack.Units = append(stack.Units, u)
	}
	if len(stack.Units) == 0 {
		return nil, fmt.Errorf("config: %s declares no install units", path)
	}

	// Declaration order is the graph's registration order, so cycles and
	// unknown prerequisites surface here, not at apply time.
	g := graph.New()
	for _, u := range stack.Units {
		if err := g.AddUnit(u.Name, u.Prerequisites...); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	return stack, nil
}

// ComponentMap indexes components by name.
func (s *Stack) ComponentMap() map[string]version.Component {
	out := make(map[string]version.Component, len(s.Components))
	for _, c := range s.Components {
		out[c.Name] = c
	}
	return out
}

// Component returns the named component.
func (s *Stack) Component(name string) (version.Component, error) {
	for _, c := range s.Components {
		if c.Name == name {
			return c, nil
		}
	}
	return version.Component{}, &version.UnknownComponentError{Component: name}
}
