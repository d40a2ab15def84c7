package version

import "fmt"

// UnknownComponentError reports a component name with no registration.
type UnknownComponentError struct {
	Component string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("version: unknown component %q", e.Component)
}

// NotFoundError reports a version token absent from a place expected to
// carry it: either a registered manifest file or the upstream release index.
type NotFoundError struct {
	Component string
	Version   string
	// File is set when the token was missing from a registered file;
	// empty when the version was missing upstream.
	File string
}

func (e *NotFoundError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("version: %s token %q not found in registered file %s", e.Component, e.Version, e.File)
	}
	return fmt.Sprintf("version: release index does not list %s version %s", e.Component, e.Version)
}
