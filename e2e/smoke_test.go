package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestE2ESmoke_InstallStack installs a minimal stack onto a throwaway Kind
// cluster and verifies barrier ordering end to end: the operator Deployment
// must be Available before the operand is applied.
func TestE2ESmoke_InstallStack(t *testing.T) {
	if os.Getenv("STREAMFORGE_E2E") == "" {
		t.Skip("set STREAMFORGE_E2E=1 to run Kind-based smoke test")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not found in PATH")
	}
	if _, err := exec.LookPath("kind"); err != nil {
		t.Skip("kind not found in PATH")
	}
	if _, err := exec.LookPath("kubectl"); err != nil {
		t.Skip("kubectl not found in PATH")
	}

	repoRoot := findRepoRoot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	clusterName := fmt.Sprintf("streamforge-e2e-%d", time.Now().UnixNano())
	t.Logf("cluster=%s", clusterName)

	t.Cleanup(func() {
		_, _ = runAllow(ctx, repoRoot, "kind", "delete", "cluster", "--name", clusterName)
	})
	runOrFail(t, ctx, repoRoot, "kind", "create", "cluster", "--name", clusterName, "--wait", "60s")

	kubeconfigPath := filepath.Join(t.TempDir(), "kubeconfig")
	kubeconfig := runOrFail(t, ctx, repoRoot, "kind", "get", "kubeconfig", "--name", clusterName)
	if err := os.WriteFile(kubeconfigPath, []byte(kubeconfig), 0o600); err != nil {
		t.Fatalf("write kubeconfig: %v", err)
	}

	stackDir := writeStackFixture(t)

	out := runOrFail(t, ctx, repoRoot, "go", "run", "./cmd/streamforge", "install",
		"--stack", filepath.Join(stackDir, "stack.yaml"),
		"--kubeconfig", kubeconfigPath,
		"--timeout", "3m")
	t.Logf("install output:\n%s", out)

	if !strings.Contains(out, "unit operator") {
		t.Fatalf("expected install report to mention the operator unit:\n%s", out)
	}

	// The operand was only applied once the operator became Available.
	status := runOrFail(t, ctx, repoRoot, "kubectl", "--kubeconfig", kubeconfigPath,
		"get", "deployment", "-n", "streamforge-e2e", "echo-operand", "-o", "jsonpath={.status.availableReplicas}")
	if strings.TrimSpace(status) == "" || strings.TrimSpace(status) == "0" {
		t.Fatalf("expected operand deployment available, got %q", status)
	}
}

// writeStackFixture lays out a two-unit stack where both units are plain
// Deployments so the test needs no third-party operators, only ordering.
func writeStackFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	write := func(rel, content string) {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	write("stack.yaml", `root: .
components:
  - name: echo
    repo: library/busybox
    marker: "image-tag: "
    files:
      - operator/10-deployment.yaml
units:
  - name: operator
    target: operator
    readiness:
      apiVersion: apps/v1
      kind: Deployment
      namespace: streamforge-e2e
      name: echo-operator
      type: Available
    timeout: 3m
  - name: operand
    target: operand
    readiness:
      apiVersion: apps/v1
      kind: Deployment
      namespace: streamforge-e2e
      name: echo-operand
      type: Available
    timeout: 3m
    prerequisites:
      - operator
`)

	write("operator/00-namespace.yaml", `apiVersion: v1
kind: Namespace
metadata:
  name: streamforge-e2e
`)
	write("operator/10-deployment.yaml", deployment("echo-operator")+`  # image-tag: 1.36.0
`)
	write("operand/10-deployment.yaml", deployment("echo-operand"))
	return dir
}

func deployment(name string) string {
	return fmt.Sprintf(`apiVersion: apps/v1
kind: Deployment
metadata:
  name: %s
  namespace: streamforge-e2e
spec:
  replicas: 1
  selector:
    matchLabels:
      app: %s
  template:
    metadata:
      labels:
        app: %s
    spec:
      containers:
        - name: main
          image: busybox:1.36
          command: ["sleep", "3600"]
`, name, name, name)
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}

func runOrFail(t *testing.T, ctx context.Context, dir, name string, args ...string) string {
	t.Helper()
	out, err := runAllow(ctx, dir, name, args...)
	if err != nil {
		t.Fatalf("%s %s: %v\n%s", name, strings.Join(args, " "), err, out)
	}
	return out
}

func runAllow(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}
