package orchestrator

import (
	"context"
	"errors"

	"github.com/streamforge-platform/streamforge/internal/manifest"
	"github.com/streamforge-platform/streamforge/internal/unit"
)

// ErrKindNotRegistered marks an apply that failed only because the
// document's resource type is not yet known to the cluster, e.g. a custom
// resource applied before its definition finished registering. The
// orchestrator retries this one condition up to the unit's timeout; any
// other apply failure is fatal.
var ErrKindNotRegistered = errors.New("resource kind not registered")

// ClusterAPI is the slice of the cluster the orchestrator consumes: submit
// a manifest document, and observe a named status condition. Nothing else.
type ClusterAPI interface {
	Apply(ctx context.Context, doc manifest.Document) error
	GetCondition(ctx context.Context, ref unit.ConditionRef) (bool, error)
}
