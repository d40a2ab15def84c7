package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/streamforge-platform/streamforge/internal/cluster"
	"github.com/streamforge-platform/streamforge/internal/config"
	"github.com/streamforge-platform/streamforge/internal/manifest"
	"github.com/streamforge-platform/streamforge/internal/orchestrator"
	"github.com/streamforge-platform/streamforge/internal/unit"
	"github.com/streamforge-platform/streamforge/internal/version"
)

// newClusterAPI is a seam for tests; production builds a client from the
// kubeconfig.
var newClusterAPI = func(kubeconfig string) (orchestrator.ClusterAPI, error) {
	loading := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loading.ExplicitPath = kubeconfig
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loading, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	return cluster.New(cfg)
}

func newInstallCmd(opts *rootOptions) *cobra.Command {
	var kubeconfig string
	var pollInterval time.Duration
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Apply the stack's install units in dependency order",
		Long: `install resolves every unit's manifest set at the currently pinned
component versions and applies the units in topological order. After each
unit is applied, its readiness condition is awaited before dependents
proceed. The first failure aborts the run; previously applied units stay
applied and the report names the prefix that succeeded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := opts.logger()

			stack, err := config.Load(opts.stackPath)
			if err != nil {
				return err
			}

			rewriter := &version.Rewriter{Root: stack.Root, Components: stack.ComponentMap(), Log: log}
			var pins []version.Pinned
			for _, c := range stack.Components {
				current, err := rewriter.CurrentVersion(c.Name)
				if err != nil {
					return err
				}
				pin, err := version.NewPinned(c.Name, current)
				if err != nil {
					return err
				}
				pins = append(pins, pin)
				fmt.Fprintf(cmd.OutOrStdout(), "component %s pinned at %s\n", c.Name, current)
			}

			clusterAPI, err := newClusterAPI(kubeconfig)
			if err != nil {
				return err
			}

			orch := &orchestrator.Orchestrator{
				Cluster:        clusterAPI,
				Resolver:       &manifest.Resolver{Root: stack.Root, Components: stack.ComponentMap()},
				PollInterval:   pollInterval,
				DefaultTimeout: timeout,
				Log:            log,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			report, runErr := orch.Run(ctx, stack.Units, pins...)
			printReport(cmd, report)
			return runErr
		},
	}

	cmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "path to the kubeconfig (defaults to the standard loading rules)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", orchestrator.DefaultPollInterval, "readiness poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", orchestrator.DefaultTimeout, "default readiness timeout for units without one")
	return cmd
}

func printReport(cmd *cobra.Command, report *orchestrator.Report) {
	if report == nil {
		return
	}
	out := cmd.OutOrStdout()
	for _, res := range report.Results {
		switch res.Outcome {
		case unit.OutcomeSucceeded:
			fmt.Fprintf(out, "unit %-20s ready in %s\n", res.Unit, res.Elapsed.Round(time.Millisecond))
		default:
			fmt.Fprintf(out, "unit %-20s %s: %v\n", res.Unit, res.Outcome, res.Err)
		}
	}
	if applied := len(report.Results); applied < len(report.Order) {
		fmt.Fprintf(out, "aborted: %d of %d units attempted; succeeded: %v\n",
			applied, len(report.Order), report.Succeeded())
	}
}
