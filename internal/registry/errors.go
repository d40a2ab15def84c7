package registry

import "fmt"

// TransportError is a network-level failure talking to the release index.
// It is retryable in principle; the caller decides the policy.
type TransportError struct {
	Op   string
	Repo string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("release index: %s for %s: %v", e.Op, e.Repo, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UnknownRepoError reports a repository the index does not know.
type UnknownRepoError struct {
	Repo string
}

func (e *UnknownRepoError) Error() string {
	return fmt.Sprintf("release index: unknown repository %q", e.Repo)
}
