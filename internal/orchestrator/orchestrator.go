// Package orchestrator executes an ordered sequence of install units
// against a live cluster with barrier semantics: apply a unit, wait for its
// readiness condition, then proceed. Downstream units assume the
// prerequisite's API types are already registered, so the barrier is the
// contract, not an optimization.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/streamforge-platform/streamforge/internal/graph"
	"github.com/streamforge-platform/streamforge/internal/manifest"
	"github.com/streamforge-platform/streamforge/internal/unit"
	"github.com/streamforge-platform/streamforge/internal/version"
)

const (
	// DefaultPollInterval is the readiness poll cadence.
	DefaultPollInterval = 3 * time.Second
	// DefaultTimeout bounds a unit's readiness wait when the unit does not
	// set its own.
	DefaultTimeout = 5 * time.Minute
)

// Resolver yields the ordered manifest documents for a target.
type Resolver interface {
	Resolve(target string, pins ...version.Pinned) ([]manifest.Document, error)
}

// Orchestrator applies install units one at a time. Single-threaded by
// design: the cluster is the only shared mutable resource and is easier to
// reason about without concurrent writers.
type Orchestrator struct {
	Cluster  ClusterAPI
	Resolver Resolver

	// PollInterval between readiness checks; zero means
	// DefaultPollInterval.
	PollInterval time.Duration
	// DefaultTimeout for units without one; zero means the package
	// default.
	DefaultTimeout time.Duration

	Log logr.Logger
}

// Report is the partial-progress record of one run. Partial state is an
// expected, visible outcome: prior units stay applied on failure and the
// report names exactly which prefix succeeded.
type Report struct {
	// Order is the topological order the run followed.
	Order []string
	// Results holds one entry per attempted unit, in order.
	Results []unit.ApplyResult
}

// Succeeded returns the names of units that completed, in order.
func (r *Report) Succeeded() []string {
	var out []string
	for _, res := range r.Results {
		if res.Outcome == unit.OutcomeSucceeded {
			out = append(out, res.Unit)
		}
	}
	return out
}

// Run applies units in topological order, blocking on each unit's readiness
// before proceeding. The first ApplyError or TimeoutError aborts the run;
// the returned Report is valid in both outcomes.
//
// Configuration errors (cycles, unknown prerequisites, invalid units) are
// detected before anything is applied.
func (o *Orchestrator) Run(ctx context.Context, units []unit.InstallUnit, pins ...version.Pinned) (*Report, error) {
	byName := make(map[string]unit.InstallUnit, len(units))
	g := graph.New()
	for _, u := range units {
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if err := g.AddUnit(u.Name, u.Prerequisites...); err != nil {
			return nil, err
		}
		byName[u.Name] = u
	}

	order := g.TopologicalOrder()
	report := &Report{Order: order}

	// Resolve every manifest set up front so an unknown target or a
	// malformed document cannot abort the run halfway through.
	resolved := make(map[string][]manifest.Document, len(order))
	for _, name := range order {
		docs, err := o.Resolver.Resolve(byName[name].Target, pins...)
		if err != nil {
			return nil, err
		}
		resolved[name] = docs
	}

	for _, name := range order {
		u := byName[name]
		started := time.Now()
		log := o.Log.WithValues("unit", name, "target", u.Target)

		log.Info("applying unit", "documents", len(resolved[name]))
		if err := o.applyUnit(ctx, u, resolved[name]); err != nil {
			unitsAppliedTotal.WithLabelValues(string(unit.OutcomeFailed)).Inc()
			report.Results = append(report.Results, unit.ApplyResult{
				Unit: name, Outcome: unit.OutcomeFailed, Elapsed: time.Since(started), Err: err,
			})
			log.Error(err, "apply failed; aborting run", "succeeded", report.Succeeded())
			return report, err
		}

		log.Info("awaiting readiness", "condition", u.Readiness.String(), "timeout", o.timeoutFor(u))
		if err := o.AwaitReady(ctx, u); err != nil {
			outcome := unit.OutcomeFailed
			var timeout *TimeoutError
			if errors.As(err, &timeout) {
				outcome = unit.OutcomeTimedOut
			}
			unitsAppliedTotal.WithLabelValues(string(outcome)).Inc()
			report.Results = append(report.Results, unit.ApplyResult{
				Unit: name, Outcome: outcome, Elapsed: time.Since(started), Err: err,
			})
			log.Error(err, "readiness wait failed; aborting run", "succeeded", report.Succeeded())
			return report, err
		}

		unitsAppliedTotal.WithLabelValues(string(unit.OutcomeSucceeded)).Inc()
		report.Results = append(report.Results, unit.ApplyResult{
			Unit: name, Outcome: unit.OutcomeSucceeded, Elapsed: time.Since(started),
		})
		log.Info("unit ready", "elapsed", time.Since(started).Round(time.Millisecond))
	}
	return report, nil
}

// applyUnit submits the unit's documents in order. A document whose
// resource type is not yet registered is retried at the poll interval up to
// the unit's timeout: definitions applied moments earlier may still be
// propagating. Every other rejection is fatal.
func (o *Orchestrator) applyUnit(ctx context.Context, u unit.InstallUnit, docs []manifest.Document) error {
	deadline := time.Now().Add(o.timeoutFor(u))
	for _, doc := range docs {
		for {
			err := o.Cluster.Apply(ctx, doc)
			if err == nil {
				documentsAppliedTotal.Inc()
				break
			}
			if !errors.Is(err, ErrKindNotRegistered) {
				return &ApplyError{Unit: u.Name, Source: doc.Source, Err: err}
			}
			if time.Now().After(deadline) {
				return &ApplyError{Unit: u.Name, Source: doc.Source, Err: err}
			}
			o.Log.V(1).Info("resource kind not registered yet; retrying", "unit", u.Name, "document", doc.Source)
			if err := sleep(ctx, o.pollInterval()); err != nil {
				return &ApplyError{Unit: u.Name, Source: doc.Source, Err: err}
			}
		}
	}
	return nil
}

// AwaitReady polls the unit's readiness condition at a fixed interval until
// it holds, the timeout elapses, or ctx is cancelled.
//
// Polling is the one place transient failure is tolerated: a poll's
// transport error is absorbed and retried up to the deadline, and only the
// first one is surfaced, as the cause of the eventual TimeoutError.
func (o *Orchestrator) AwaitReady(ctx context.Context, u unit.InstallUnit) error {
	started := time.Now()
	deadline := started.Add(o.timeoutFor(u))
	defer func() {
		readinessWaitDuration.Observe(time.Since(started).Seconds())
	}()

	var firstTransportErr error
	for {
		ready, err := o.Cluster.GetCondition(ctx, u.Readiness)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			pollTransportErrorsTotal.Inc()
			if firstTransportErr == nil {
				firstTransportErr = err
			}
			o.Log.V(1).Info("readiness poll failed; retrying", "unit", u.Name, "error", err.Error())
		case ready:
			return nil
		}

		if time.Now().After(deadline) {
			return &TimeoutError{
				Unit:      u.Name,
				Condition: u.Readiness.String(),
				Elapsed:   time.Since(started),
				Cause:     firstTransportErr,
			}
		}
		if err := sleep(ctx, o.pollInterval()); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) pollInterval() time.Duration {
	if o.PollInterval > 0 {
		return o.PollInterval
	}
	return DefaultPollInterval
}

func (o *Orchestrator) timeoutFor(u unit.InstallUnit) time.Duration {
	if u.Timeout > 0 {
		return u.Timeout
	}
	if o.DefaultTimeout > 0 {
		return o.DefaultTimeout
	}
	return DefaultTimeout
}

// sleep blocks for d or until ctx is cancelled, so an external signal
// aborts a wait promptly instead of waiting out the full timeout.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
