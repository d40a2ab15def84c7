package graph

import (
	"fmt"
	"strings"
)

// CycleError reports that adding a unit would close a dependency cycle.
type CycleError struct {
	// Units is the closed walk, first element repeated implicitly.
	Units []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency graph: cycle through %s", strings.Join(e.Units, " -> "))
}

// UnknownPrerequisiteError reports a prerequisite that has not been
// registered before the unit referencing it.
type UnknownPrerequisiteError struct {
	Unit         string
	Prerequisite string
}

func (e *UnknownPrerequisiteError) Error() string {
	return fmt.Sprintf("dependency graph: unit %q requires unknown prerequisite %q", e.Unit, e.Prerequisite)
}

// DuplicateUnitError reports a unit registered twice.
type DuplicateUnitError struct {
	Unit string
}

func (e *DuplicateUnitError) Error() string {
	return fmt.Sprintf("dependency graph: unit %q already registered", e.Unit)
}
