package manifest

import "fmt"

// UnknownTargetError reports a target name with no manifest directory.
type UnknownTargetError struct {
	Target string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("manifest: unknown target %q", e.Target)
}
