package version

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
)

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, root, path string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(root, path))
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(raw)
}

func newTestRewriter(root string) *Rewriter {
	return &Rewriter{
		Root: root,
		Components: map[string]Component{
			"strimzi": {
				Name:   "strimzi",
				Repo:   "strimzi/strimzi-kafka-operator",
				Files:  []string{"operators/kustomization.yaml", "operands/kafka.yaml"},
				Marker: "releases/download/",
			},
		},
		Log: logr.Discard(),
	}
}

const operatorManifest = `resources:
  - https://github.com/strimzi/strimzi-kafka-operator/releases/download/0.45.0/strimzi-cluster-operator-0.45.0.yaml
images:
  - name: quay.io/strimzi/operator
    newTag: 0.45.0
`

const kafkaManifest = `apiVersion: kafka.strimzi.io/v1beta2
kind: Kafka
metadata:
  name: broker
  annotations:
    platform.streamforge.io/operator-version: "0.45.0"
spec:
  kafka:
    version: 3.9.0
`

func TestCurrentVersion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "operators/kustomization.yaml", operatorManifest)
	writeFile(t, root, "operands/kafka.yaml", kafkaManifest)

	r := newTestRewriter(root)
	got, err := r.CurrentVersion("strimzi")
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if got != "0.45.0" {
		t.Fatalf("expected 0.45.0, got %q", got)
	}
}

func TestCurrentVersion_UnknownComponent(t *testing.T) {
	r := newTestRewriter(t.TempDir())
	_, err := r.CurrentVersion("apicurio")
	var unknown *UnknownComponentError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownComponentError, got %v", err)
	}
}

func TestRewrite_ReplacesEveryOccurrence(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "operators/kustomization.yaml", operatorManifest)
	writeFile(t, root, "operands/kafka.yaml", kafkaManifest)

	r := newTestRewriter(root)
	report, err := r.Rewrite("strimzi", "0.46.0", ModeApply)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if report.From != "0.45.0" || report.To != "0.46.0" {
		t.Fatalf("expected 0.45.0 -> 0.46.0, got %s -> %s", report.From, report.To)
	}

	updated := readFile(t, root, "operators/kustomization.yaml")
	if strings.Count(updated, "0.46.0") != 3 {
		t.Fatalf("expected three occurrences of 0.46.0, got:\n%s", updated)
	}
	if strings.Contains(updated, "0.45.0") {
		t.Fatalf("expected zero occurrences of 0.45.0, got:\n%s", updated)
	}
	if !strings.Contains(readFile(t, root, "operands/kafka.yaml"), `operator-version: "0.46.0"`) {
		t.Fatalf("expected operand manifest rewritten consistently")
	}
}

func TestRewrite_RoundTripRestoresBytes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "operators/kustomization.yaml", operatorManifest)
	writeFile(t, root, "operands/kafka.yaml", kafkaManifest)

	r := newTestRewriter(root)
	if _, err := r.Rewrite("strimzi", "0.46.0", ModeApply); err != nil {
		t.Fatalf("first rewrite: %v", err)
	}
	if _, err := r.Rewrite("strimzi", "0.45.0", ModeApply); err != nil {
		t.Fatalf("second rewrite: %v", err)
	}
	if got := readFile(t, root, "operators/kustomization.yaml"); got != operatorManifest {
		t.Fatalf("round trip did not restore bytes:\n%s", got)
	}
	if got := readFile(t, root, "operands/kafka.yaml"); got != kafkaManifest {
		t.Fatalf("round trip did not restore operand bytes:\n%s", got)
	}
}

func TestRewrite_DryRunNeverMutates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "operators/kustomization.yaml", operatorManifest)
	writeFile(t, root, "operands/kafka.yaml", kafkaManifest)

	r := newTestRewriter(root)
	report, err := r.Rewrite("strimzi", "0.46.0", ModeDryRun)
	if err != nil {
		t.Fatalf("Rewrite dry-run: %v", err)
	}
	if len(report.Files) != 2 {
		t.Fatalf("expected diffs for both files, got %d", len(report.Files))
	}
	if report.Files[0].Occurrences != 3 {
		t.Fatalf("expected three occurrences reported, got %d", report.Files[0].Occurrences)
	}
	if !strings.Contains(report.Files[0].Diff, "0.46.0") {
		t.Fatalf("expected diff to show new version:\n%s", report.Files[0].Diff)
	}

	if got := readFile(t, root, "operators/kustomization.yaml"); got != operatorManifest {
		t.Fatalf("dry-run mutated file:\n%s", got)
	}
	current, err := r.CurrentVersion("strimzi")
	if err != nil {
		t.Fatalf("CurrentVersion after dry-run: %v", err)
	}
	if current != "0.45.0" {
		t.Fatalf("expected current version unchanged after dry-run, got %s", current)
	}
}

func TestRewrite_MissingTokenAbortsWholeOperation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "operators/kustomization.yaml", operatorManifest)
	// Operand file lost its token, e.g. a hand edit.
	writeFile(t, root, "operands/kafka.yaml", strings.ReplaceAll(kafkaManifest, "0.45.0", "0.44.0"))

	r := newTestRewriter(root)
	_, err := r.Rewrite("strimzi", "0.46.0", ModeApply)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.File != "operands/kafka.yaml" {
		t.Fatalf("expected the offending file named, got %q", notFound.File)
	}
	// Nothing may have been written, including the valid first file.
	if got := readFile(t, root, "operators/kustomization.yaml"); got != operatorManifest {
		t.Fatalf("aborted rewrite mutated a file:\n%s", got)
	}
}

func TestRewrite_RejectsMalformedVersion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "operators/kustomization.yaml", operatorManifest)
	writeFile(t, root, "operands/kafka.yaml", kafkaManifest)

	r := newTestRewriter(root)
	if _, err := r.Rewrite("strimzi", "0.46", ModeApply); err == nil {
		t.Fatalf("expected malformed version to be rejected")
	}
	if got := readFile(t, root, "operators/kustomization.yaml"); got != operatorManifest {
		t.Fatalf("rejected rewrite mutated a file")
	}
}

type fakeIndex struct {
	versions map[string]bool
	err      error
}

func (f *fakeIndex) ReleaseExists(_ context.Context, _, version string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.versions[version], nil
}

func TestExists(t *testing.T) {
	r := newTestRewriter(t.TempDir())
	r.Index = &fakeIndex{versions: map[string]bool{"0.46.0": true}}

	if err := r.Exists(context.Background(), "strimzi", "0.46.0"); err != nil {
		t.Fatalf("Exists: %v", err)
	}

	err := r.Exists(context.Background(), "strimzi", "9.9.9")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unlisted version, got %v", err)
	}
	if notFound.Version != "9.9.9" {
		t.Fatalf("expected version named, got %q", notFound.Version)
	}
}

func TestExists_TransportErrorIsNotNotFound(t *testing.T) {
	r := newTestRewriter(t.TempDir())
	transport := errors.New("dial tcp: connection refused")
	r.Index = &fakeIndex{err: transport}

	err := r.Exists(context.Background(), "strimzi", "0.46.0")
	if !errors.Is(err, transport) {
		t.Fatalf("expected transport error surfaced as-is, got %v", err)
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		t.Fatalf("expected transport error NOT to be NotFoundError")
	}
}
