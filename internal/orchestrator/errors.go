package orchestrator

import (
	"fmt"
	"time"
)

// ApplyError reports a manifest the cluster rejected. Fatal for the run:
// manifests are assumed well-formed by construction, so a rejection is a
// configuration problem, not a transient.
type ApplyError struct {
	Unit   string
	Source string
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s: document %s rejected: %v", e.Unit, e.Source, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// TimeoutError reports a readiness condition that was never observed within
// the unit's deadline. Distinguishable from ApplyError for operator
// diagnosis. Cause carries the first transport error seen while polling,
// if any.
type TimeoutError struct {
	Unit      string
	Condition string
	Elapsed   time.Duration
	Cause     error
}

func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unit %s: condition %s not ready after %s (first poll error: %v)", e.Unit, e.Condition, e.Elapsed.Round(time.Millisecond), e.Cause)
	}
	return fmt.Sprintf("unit %s: condition %s not ready after %s", e.Unit, e.Condition, e.Elapsed.Round(time.Millisecond))
}

func (e *TimeoutError) Unwrap() error { return e.Cause }
