package unit

import (
	"fmt"
	"strings"
	"time"
)

// ConditionRef names the cluster object and condition type whose truth
// signals that an InstallUnit's resources are usable by dependents.
type ConditionRef struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Namespace  string `json:"namespace"`
	Name       string `json:"name"`
	Type       string `json:"type"`
}

func (c ConditionRef) String() string {
	return fmt.Sprintf("%s/%s %s/%s condition %s", c.APIVersion, c.Kind, c.Namespace, c.Name, c.Type)
}

// InstallUnit is one independently applied manifest set plus its readiness
// condition. Immutable once constructed for a given run.
type InstallUnit struct {
	// Name identifies the unit in the dependency graph and in reports.
	Name string
	// Target names the manifest set directory resolved for this unit.
	Target string
	// Readiness is the condition awaited after apply before dependents
	// may proceed.
	Readiness ConditionRef
	// Timeout bounds the readiness wait. Zero means the orchestrator
	// default.
	Timeout time.Duration
	// Prerequisites are names of units whose readiness must hold before
	// this unit is applied.
	Prerequisites []string
}

// Validate rejects units that cannot be scheduled.
func (u InstallUnit) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("install unit: name is required")
	}
	if strings.TrimSpace(u.Target) == "" {
		return fmt.Errorf("install unit %q: target is required", u.Name)
	}
	if strings.TrimSpace(u.Readiness.Kind) == "" || strings.TrimSpace(u.Readiness.Name) == "" || strings.TrimSpace(u.Readiness.Type) == "" {
		return fmt.Errorf("install unit %q: readiness condition must name kind, name and type", u.Name)
	}
	if u.Timeout < 0 {
		return fmt.Errorf("install unit %q: negative timeout", u.Name)
	}
	return nil
}

// Outcome classifies the result of applying one InstallUnit.
type Outcome string

const (
	OutcomeSucceeded Outcome = "Succeeded"
	OutcomeFailed    Outcome = "Failed"
	OutcomeTimedOut  Outcome = "TimedOut"
)

// ApplyResult is the per-unit outcome of one run. Transient: produced per
// run, never persisted.
type ApplyResult struct {
	Unit    string
	Outcome Outcome
	Elapsed time.Duration
	Err     error
}
