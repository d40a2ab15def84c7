package main

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/streamforge-platform/streamforge/internal/graph"
	"github.com/streamforge-platform/streamforge/internal/manifest"
	"github.com/streamforge-platform/streamforge/internal/orchestrator"
	"github.com/streamforge-platform/streamforge/internal/registry"
	"github.com/streamforge-platform/streamforge/internal/semver"
	"github.com/streamforge-platform/streamforge/internal/version"
)

type rootOptions struct {
	stackPath string
	indexURL  string
	verbose   bool
}

func (o *rootOptions) logger() logr.Logger {
	return zap.New(zap.UseDevMode(o.verbose))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "streamforge",
		Short: "Install and maintain a versioned streaming stack on a cluster",
		Long: `streamforge applies a declared set of interdependent install units to a
cluster in dependency order, waiting for each unit's readiness condition
before dependents proceed, and maintains the component versions pinned
inside the manifest files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.stackPath, "stack", "s", "stack.yaml", "path to the stack file")
	cmd.PersistentFlags().StringVar(&opts.indexURL, "index-url", "", "release index base URL (defaults to the GitHub API)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(newInstallCmd(opts))
	cmd.AddCommand(newVersionCmd(opts))
	return cmd
}

// describe renders an error for the operator, keeping the taxonomy visible:
// a malformed version, an unknown component and a version missing upstream
// each read differently because they need different fixes.
func describe(err error) string {
	var malformed *semver.MalformedVersionError
	var unknownComponent *version.UnknownComponentError
	var unknownTarget *manifest.UnknownTargetError
	var notFound *version.NotFoundError
	var transport *registry.TransportError
	var cycle *graph.CycleError
	var applyErr *orchestrator.ApplyError
	var timeoutErr *orchestrator.TimeoutError

	switch {
	case errors.As(err, &malformed):
		return fmt.Sprintf("malformed version: %v", err)
	case errors.As(err, &unknownComponent):
		return fmt.Sprintf("component unknown: %v", err)
	case errors.As(err, &unknownTarget):
		return fmt.Sprintf("target unknown: %v", err)
	case errors.As(err, &notFound):
		if notFound.File == "" {
			return fmt.Sprintf("version not found upstream: %v", err)
		}
		return err.Error()
	case errors.As(err, &transport):
		return fmt.Sprintf("release index unreachable: %v", err)
	case errors.As(err, &cycle):
		return fmt.Sprintf("invalid stack: %v", err)
	case errors.As(err, &applyErr), errors.As(err, &timeoutErr):
		return err.Error()
	default:
		return err.Error()
	}
}
