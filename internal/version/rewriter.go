package version

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/go-logr/logr"

	"github.com/streamforge-platform/streamforge/internal/semver"
)

// Mode selects whether a rewrite mutates files or only reports what would
// change.
type Mode string

const (
	ModeApply  Mode = "apply"
	ModeDryRun Mode = "dry-run"
)

// ReleaseIndex is the slice of the release index client the rewriter needs.
type ReleaseIndex interface {
	ReleaseExists(ctx context.Context, repo, version string) (bool, error)
}

// FileChange records the effect of a rewrite on one registered file.
type FileChange struct {
	Path        string
	Occurrences int
	// Diff is a unified diff of the change, rendered for both modes.
	Diff string
}

// Report is the outcome of one rewrite invocation.
type Report struct {
	Component string
	From      string
	To        string
	Mode      Mode
	Files     []FileChange
}

// Rewriter locates and rewrites the version token embedded in a component's
// registered manifest files.
//
// One invocation moves through Idle -> VersionResolved -> FilesValidated ->
// FilesWritten, or aborts before any write when a registered file lacks the
// current token. No state survives past a single invocation.
type Rewriter struct {
	// Root is the directory component file paths are relative to.
	Root string
	// Components maps component name to its registration.
	Components map[string]Component
	// Index is consulted by Exists; optional for purely local operations.
	Index ReleaseIndex
	Log   logr.Logger
}

// Component returns the registration for name.
func (r *Rewriter) Component(name string) (Component, error) {
	c, ok := r.Components[name]
	if !ok {
		return Component{}, &UnknownComponentError{Component: name}
	}
	return c, nil
}

// CurrentVersion returns the pinned version of component by scanning the
// first registered file carrying its token.
func (r *Rewriter) CurrentVersion(component string) (string, error) {
	c, err := r.Component(component)
	if err != nil {
		return "", err
	}
	path := c.Files[0]
	content, err := os.ReadFile(filepath.Join(r.Root, path))
	if err != nil {
		return "", fmt.Errorf("version: read %s: %w", path, err)
	}
	token := c.FindToken(string(content))
	if token == "" {
		return "", &NotFoundError{Component: component, File: path}
	}
	return token, nil
}

// Rewrite replaces every occurrence of component's current version with
// newVersion in every registered file.
//
// Validation is all-or-nothing: if any registered file lacks the current
// token the whole operation fails with NotFoundError naming that file and
// nothing is written. In dry-run mode the same diffs are computed and
// reported with no mutation.
func (r *Rewriter) Rewrite(component, newVersion string, mode Mode) (*Report, error) {
	c, err := r.Component(component)
	if err != nil {
		return nil, err
	}
	if _, err := semver.ParsePinned(newVersion); err != nil {
		return nil, err
	}

	current, err := r.CurrentVersion(component)
	if err != nil {
		return nil, err
	}

	report := &Report{Component: component, From: current, To: newVersion, Mode: mode}
	if current == newVersion {
		r.Log.Info("version already pinned", "component", component, "version", newVersion)
		return report, nil
	}

	// Validate every registered file before touching any of them.
	contents := make(map[string]string, len(c.Files))
	for _, path := range c.Files {
		raw, err := os.ReadFile(filepath.Join(r.Root, path))
		if err != nil {
			return nil, fmt.Errorf("version: read %s: %w", path, err)
		}
		content := string(raw)
		if !strings.Contains(content, current) {
			return nil, &NotFoundError{Component: component, Version: current, File: path}
		}
		contents[path] = content
	}

	for _, path := range c.Files {
		old := contents[path]
		updated := strings.ReplaceAll(old, current, newVersion)
		report.Files = append(report.Files, FileChange{
			Path:        path,
			Occurrences: strings.Count(old, current),
			Diff:        udiff.Unified(path, path, old, updated),
		})
		if mode == ModeDryRun {
			continue
		}
		info, err := os.Stat(filepath.Join(r.Root, path))
		if err != nil {
			return nil, fmt.Errorf("version: stat %s: %w", path, err)
		}
		if err := os.WriteFile(filepath.Join(r.Root, path), []byte(updated), info.Mode().Perm()); err != nil {
			return nil, fmt.Errorf("version: write %s: %w", path, err)
		}
		r.Log.Info("rewrote version token", "component", component, "file", path, "from", current, "to", newVersion)
	}
	return report, nil
}

// Exists checks the release index for component's version. A version the
// index does not list fails with NotFoundError; transport failures are
// reported as-is since they imply different remediation.
func (r *Rewriter) Exists(ctx context.Context, component, newVersion string) error {
	c, err := r.Component(component)
	if err != nil {
		return err
	}
	if _, err := semver.ParsePinned(newVersion); err != nil {
		return err
	}
	if r.Index == nil {
		return fmt.Errorf("version: no release index configured")
	}
	ok, err := r.Index.ReleaseExists(ctx, c.Repo, newVersion)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Component: component, Version: newVersion}
	}
	return nil
}
