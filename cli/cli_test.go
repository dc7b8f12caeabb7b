// Black-box determinism tests: identical invocations must produce identical
// stdout and identical on-disk artifacts.
package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	icl "wireweaver/internal/cli"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return b
}

func execute(t *testing.T, args []string) (icl.CLIResult, string) {
	t.Helper()
	inv, err := icl.ParseInvocation(args)
	if err != nil {
		t.Fatalf("ParseInvocation: %v", err)
	}
	var stdout bytes.Buffer
	res, err := icl.ExecuteWithOutput(context.Background(), inv, &stdout)
	if err != nil {
		t.Fatalf("ExecuteWithOutput: %v", err)
	}
	return res, stdout.String()
}

func TestDeterministicInvocation_IdenticalRunsIdenticalArtifacts(t *testing.T) {
	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, "wires.txt"), "123 -> x\n456 -> y\nx AND y -> d\nNOT x -> h\n")
	writeFile(t, filepath.Join(workDir, "plan.yaml"), `queries:
  - name: and
    target: d
  - name: notx
    target: h
`)

	args := []string{
		"--workdir", workDir,
		"--circuit", "wires.txt",
		"--plan", "plan.yaml",
		"--trace", "trace.json",
	}

	res1, out1 := execute(t, args)
	trace1 := readFile(t, filepath.Join(workDir, "trace.json"))

	res2, out2 := execute(t, args)
	trace2 := readFile(t, filepath.Join(workDir, "trace.json"))

	if res1.ExitCode != 0 || res2.ExitCode != 0 {
		t.Fatalf("exit codes = %d, %d", res1.ExitCode, res2.ExitCode)
	}
	if out1 != out2 {
		t.Fatalf("stdout diverged:\n%q\n%q", out1, out2)
	}
	if out1 != "and = 72\nnotx = 65412\n" {
		t.Fatalf("stdout = %q", out1)
	}
	if !bytes.Equal(trace1, trace2) {
		t.Fatalf("trace artifacts diverged:\n%s\n%s", trace1, trace2)
	}
}

func TestDeterministicInvocation_FragmentOrderDoesNotMatter(t *testing.T) {
	workDir := t.TempDir()
	writeFile(t, filepath.Join(workDir, "a.txt"), "123 -> x\n")
	writeFile(t, filepath.Join(workDir, "b.txt"), "NOT x -> h\n")

	res1, out1 := execute(t, []string{
		"--workdir", workDir,
		"--circuit", "a.txt", "--circuit", "b.txt",
		"--target", "h",
	})
	res2, out2 := execute(t, []string{
		"--workdir", workDir,
		"--circuit", "b.txt", "--circuit", "a.txt",
		"--target", "h",
	})

	if res1.ExitCode != 0 || res2.ExitCode != 0 {
		t.Fatalf("exit codes = %d, %d", res1.ExitCode, res2.ExitCode)
	}
	if out1 != out2 || out1 != "h = 65412\n" {
		t.Fatalf("stdout = %q vs %q", out1, out2)
	}
	if res1.Run.CircuitHash != res2.Run.CircuitHash {
		t.Fatal("circuit hash should not depend on pattern order")
	}
}
