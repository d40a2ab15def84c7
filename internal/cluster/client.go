// Package cluster implements the orchestrator's cluster API over a
// Kubernetes client: submit a manifest document, and read a named status
// condition. The orchestrator never reads back applied objects to re-derive
// intent; apply is fire-and-confirm via the readiness condition.
package cluster

import (
	"context"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/streamforge-platform/streamforge/internal/manifest"
	"github.com/streamforge-platform/streamforge/internal/orchestrator"
	"github.com/streamforge-platform/streamforge/internal/unit"
)

// Client satisfies orchestrator.ClusterAPI against a live API server.
type Client struct {
	c client.Client
}

// New builds a Client from a rest config.
func New(cfg *rest.Config) (*Client, error) {
	c, err := client.New(cfg, client.Options{})
	if err != nil {
		return nil, fmt.Errorf("cluster: build client: %w", err)
	}
	return &Client{c: c}, nil
}

// NewWithClient wraps an existing client. Used by tests with the fake
// client.
func NewWithClient(c client.Client) *Client {
	return &Client{c: c}
}

// Apply submits one manifest document, creating or updating the object.
//
// A document whose resource type the cluster does not know yet fails with
// orchestrator.ErrKindNotRegistered so the caller can retry once the
// definitions have propagated; any other rejection is returned as-is.
func (c *Client) Apply(ctx context.Context, doc manifest.Document) error {
	if doc.Object == nil {
		return fmt.Errorf("cluster: document %s has no decoded object", doc.Source)
	}
	desired := doc.Object.DeepCopy()

	existing := &unstructured.Unstructured{}
	existing.SetGroupVersionKind(desired.GroupVersionKind())
	key := types.NamespacedName{Namespace: desired.GetNamespace(), Name: desired.GetName()}

	err := c.c.Get(ctx, key, existing)
	switch {
	case apierrors.IsNotFound(err):
		if err := c.c.Create(ctx, desired); err != nil {
			return classify(err)
		}
		return nil
	case err != nil:
		return classify(err)
	}

	desired.SetResourceVersion(existing.GetResourceVersion())
	if err := c.c.Update(ctx, desired); err != nil {
		return classify(err)
	}
	return nil
}

// GetCondition reports whether the referenced object carries the named
// condition with status True. An object that does not exist yet simply is
// not ready; that is not an error.
func (c *Client) GetCondition(ctx context.Context, ref unit.ConditionRef) (bool, error) {
	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(groupVersionKind(ref))

	key := types.NamespacedName{Namespace: ref.Namespace, Name: ref.Name}
	if err := c.c.Get(ctx, key, obj); err != nil {
		if apierrors.IsNotFound(err) || meta.IsNoMatchError(err) || runtime.IsNotRegisteredError(err) {
			return false, nil
		}
		return false, err
	}

	conditions, found, err := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if err != nil || !found {
		return false, nil
	}
	for _, raw := range conditions {
		cond, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		condType, _ := cond["type"].(string)
		condStatus, _ := cond["status"].(string)
		if condType == ref.Type && condStatus == "True" {
			return true, nil
		}
	}
	return false, nil
}

func groupVersionKind(ref unit.ConditionRef) schema.GroupVersionKind {
	gv, err := schema.ParseGroupVersion(ref.APIVersion)
	if err != nil {
		gv = schema.GroupVersion{Version: ref.APIVersion}
	}
	return gv.WithKind(ref.Kind)
}

// classify maps "the cluster does not know this kind" onto the
// orchestrator's retryable sentinel.
func classify(err error) error {
	if meta.IsNoMatchError(err) || runtime.IsNotRegisteredError(err) ||
		strings.Contains(err.Error(), "no matches for kind") {
		return fmt.Errorf("%w: %v", orchestrator.ErrKindNotRegistered, err)
	}
	return err
}
