package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/streamforge-platform/streamforge/internal/config"
	"github.com/streamforge-platform/streamforge/internal/registry"
	"github.com/streamforge-platform/streamforge/internal/semver"
	"github.com/streamforge-platform/streamforge/internal/version"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Inspect and rewrite pinned component versions",
	}
	cmd.AddCommand(newVersionCurrentCmd(opts))
	cmd.AddCommand(newVersionListCmd(opts))
	cmd.AddCommand(newVersionSetCmd(opts))
	return cmd
}

func newRewriter(opts *rootOptions) (*version.Rewriter, error) {
	stack, err := config.Load(opts.stackPath)
	if err != nil {
		return nil, err
	}
	return &version.Rewriter{
		Root:       stack.Root,
		Components: stack.ComponentMap(),
		Index:      registry.NewClient(opts.indexURL),
		Log:        opts.logger(),
	}, nil
}

func newVersionCurrentCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "current <component>",
		Short: "Print the version a component is pinned at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rewriter, err := newRewriter(opts)
			if err != nil {
				return err
			}
			current, err := rewriter.CurrentVersion(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), current)
			return nil
		},
	}
}

func newVersionListCmd(opts *rootOptions) *cobra.Command {
	var count string
	var satisfying string

	cmd := &cobra.Command{
		Use:   "list <component>",
		Short: "List a component's released versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rewriter, err := newRewriter(opts)
			if err != nil {
				return err
			}
			component, err := rewriter.Component(args[0])
			if err != nil {
				return err
			}

			limit := 10
			all := count == "all"
			if !all && count != "" {
				limit, err = strconv.Atoi(count)
				if err != nil || limit < 1 {
					return fmt.Errorf("invalid --count %q: expected a positive number or \"all\"", count)
				}
			}

			var constraint semver.Constraint
			filtered := satisfying != ""
			if filtered {
				constraint, err = semver.ParseConstraint(satisfying)
				if err != nil {
					return err
				}
			}

			index := registry.NewClient(opts.indexURL)
			var tags []string
			for page := 1; ; page++ {
				batch, more, err := index.ListReleases(cmd.Context(), component.Repo, page)
				if err != nil {
					return err
				}
				for _, tag := range batch {
					if filtered {
						v, err := semver.ParseVersion(tag)
						if err != nil || !semver.Satisfies(v, constraint) {
							continue
						}
					}
					tags = append(tags, tag)
				}
				if !more {
					break
				}
				if !all && len(tags) >= limit {
					break
				}
			}

			tags = semver.SortDescending(tags)
			if !all && len(tags) > limit {
				tags = tags[:limit]
			}
			for _, tag := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), tag)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&count, "count", "", "number of versions to show, or \"all\" (default 10)")
	cmd.Flags().StringVar(&satisfying, "satisfying", "", "only list versions matching this constraint, e.g. \"^0.46.0\"")
	return cmd
}

// resolveSatisfying pages the release index and picks the highest pinnable
// released version matching the constraint. Pre-release and otherwise
// non-pinnable tags are never candidates.
func resolveSatisfying(ctx context.Context, index *registry.Client, c version.Component, raw string) (string, error) {
	constraint, err := semver.ParseConstraint(raw)
	if err != nil {
		return "", err
	}

	var candidates []semver.Version
	for page := 1; ; page++ {
		batch, more, err := index.ListReleases(ctx, c.Repo, page)
		if err != nil {
			return "", err
		}
		for _, tag := range batch {
			if !semver.IsPinned(tag) {
				continue
			}
			v, err := semver.ParseVersion(tag)
			if err != nil {
				continue
			}
			candidates = append(candidates, v)
		}
		if !more {
			break
		}
	}

	best, ok := semver.MaxSatisfying(constraint, candidates)
	if !ok {
		return "", &version.NotFoundError{Component: c.Name, Version: raw}
	}
	return best.String(), nil
}

func newVersionSetCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool
	var checkOnly bool
	var satisfying string

	cmd := &cobra.Command{
		Use:   "set <component> [version]",
		Short: "Rewrite a component's pinned version across its registered files",
		Long: `set validates the new version against the release index, then rewrites
every occurrence of the current version in every file registered to the
component. The whole operation fails before any write if a registered file
does not carry the current version token.

Instead of an explicit version, --satisfying picks the highest released
version matching a constraint, e.g. --satisfying "^0.46.0".

With --dry-run the diffs are computed and printed with no mutation. With
--check only the release index is consulted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			component := args[0]
			rewriter, err := newRewriter(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var newVersion string
			// A version resolved from the index is known to exist, so the
			// explicit existence check is skipped for it.
			resolved := false
			switch {
			case satisfying != "" && len(args) > 1:
				return fmt.Errorf("pass an explicit version or --satisfying, not both")
			case satisfying != "":
				c, err := rewriter.Component(component)
				if err != nil {
					return err
				}
				newVersion, err = resolveSatisfying(cmd.Context(), registry.NewClient(opts.indexURL), c, satisfying)
				if err != nil {
					return err
				}
				resolved = true
				fmt.Fprintf(out, "%s resolved to %s\n", satisfying, newVersion)
			case len(args) < 2:
				return fmt.Errorf("a version or --satisfying is required")
			default:
				newVersion = args[1]
			}

			if checkOnly {
				if !resolved {
					if err := rewriter.Exists(cmd.Context(), component, newVersion); err != nil {
						return err
					}
				}
				fmt.Fprintf(out, "%s %s is available upstream\n", component, newVersion)
				return nil
			}

			mode := version.ModeApply
			if dryRun {
				mode = version.ModeDryRun
			} else if !resolved {
				if err := rewriter.Exists(cmd.Context(), component, newVersion); err != nil {
					return err
				}
			}

			report, err := rewriter.Rewrite(component, newVersion, mode)
			if err != nil {
				return err
			}

			if report.From == report.To {
				fmt.Fprintf(out, "%s already pinned at %s\n", component, report.To)
				return nil
			}
			fmt.Fprintf(out, "%s: %s -> %s\n", component, report.From, report.To)
			for _, change := range report.Files {
				if dryRun {
					fmt.Fprint(out, change.Diff)
					continue
				}
				fmt.Fprintf(out, "  %s: %d occurrence(s) rewritten\n", change.Path, change.Occurrences)
			}
			if dryRun {
				fmt.Fprintln(out, "dry-run: no files were modified")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print diffs without modifying any file")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "only verify the version exists upstream")
	cmd.Flags().StringVar(&satisfying, "satisfying", "", "pick the highest released version matching this constraint")
	return cmd
}
