package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/streamforge-platform/streamforge/internal/graph"
)

const validStack = `root: .
components:
  - name: strimzi
    repo: strimzi/strimzi-kafka-operator
    marker: releases/download/
    files:
      - operators/00-operator.yaml
units:
  - name: operators
    target: operators
    readiness:
      apiVersion: apps/v1
      kind: Deployment
      namespace: streaming
      name: strimzi-cluster-operator
      type: Available
    timeout: 10m
  - name: kafka
    target: operands
    readiness:
      apiVersion: kafka.strimzi.io/v1beta2
      kind: Kafka
      namespace: streaming
      name: broker
      type: Ready
    prerequisites:
      - operators
`

func writeStack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write stack: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeStack(t, validStack)
	stack, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stack.Components) != 1 || len(stack.Units) != 2 {
		t.Fatalf("expected 1 component and 2 units, got %d/%d", len(stack.Components), len(stack.Units))
	}
	if stack.Units[0].Timeout != 10*time.Minute {
		t.Fatalf("expected parsed timeout, got %s", stack.Units[0].Timeout)
	}
	if stack.Units[1].Prerequisites[0] != "operators" {
		t.Fatalf("expected prerequisite preserved, got %v", stack.Units[1].Prerequisites)
	}
	if stack.Root != filepath.Dir(path) {
		t.Fatalf("expected root resolved against stack file, got %s", stack.Root)
	}

	c, err := stack.Component("strimzi")
	if err != nil {
		t.Fatalf("Component: %v", err)
	}
	if c.Repo != "strimzi/strimzi-kafka-operator" {
		t.Fatalf("unexpected repo %q", c.Repo)
	}
}

func TestLoad_UnknownPrerequisite(t *testing.T) {
	path := writeStack(t, `units:
  - name: kafka
    target: operands
    readiness:
      apiVersion: kafka.strimzi.io/v1beta2
      kind: Kafka
      namespace: streaming
      name: broker
      type: Ready
    prerequisites:
      - operators
`)
	_, err := Load(path)
	var unknown *graph.UnknownPrerequisiteError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownPrerequisiteError, got %v", err)
	}
}

func TestLoad_SelfDependencyIsCycle(t *testing.T) {
	path := writeStack(t, `units:
  - name: kafka
    target: operands
    readiness:
      apiVersion: kafka.strimzi.io/v1beta2
      kind: Kafka
      namespace: streaming
      name: broker
      type: Ready
    prerequisites:
      - kafka
`)
	_, err := Load(path)
	var cycle *graph.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeStack(t, "unknown: true\n"+validStack)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected strict parsing to reject unknown fields")
	}
}

func TestLoad_MissingReadiness(t *testing.T) {
	path := writeStack(t, `units:
  - name: operators
    target: operators
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unit without readiness condition to be rejected")
	}
}

func TestLoad_NoUnits(t *testing.T) {
	path := writeStack(t, "root: .\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected empty stack to be rejected")
	}
}

func TestLoad_BadTimeout(t *testing.T) {
	path := writeStack(t, `units:
  - name: operators
    target: operators
    readiness:
      apiVersion: apps/v1
      kind: Deployment
      namespace: streaming
      name: op
      type: Available
    timeout: soon
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unparseable timeout to be rejected")
	}
}
