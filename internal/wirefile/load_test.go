package wirefile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wireweaver/internal/circuit"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoad_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "circuit.txt", "123 -> x\nNOT x -> h\n")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	got, err := circuit.Resolve(c, "h")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != 65412 {
		t.Fatalf("resolve(h) = %d, want 65412", got)
	}
}

func TestLoadGlobs_MergesFragmentsDeterministically(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-sources.wires", "123 -> x\n456 -> y\n")
	writeFile(t, dir, "a-logic.wires", "x AND y -> d\n")

	c, err := LoadGlobs(dir, []string{"*.wires"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 wires, got %d", c.Len())
	}
	got, err := circuit.Resolve(c, "d")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != 72 {
		t.Fatalf("resolve(d) = %d, want 72", got)
	}

	// Same fragments, same circuit identity, regardless of pattern order.
	again, err := LoadGlobs(dir, []string{"a-logic.wires", "b-sources.wires"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if c.Hash() != again.Hash() {
		t.Fatalf("fragment order changed circuit hash: %s vs %s", c.Hash(), again.Hash())
	}
}

func TestLoadGlobs_DuplicateWireAcrossFragments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.wires", "123 -> x\n")
	writeFile(t, dir, "two.wires", "456 -> x\n")

	_, err := LoadGlobs(dir, []string{"*.wires"})
	if !errors.Is(err, circuit.ErrInvalidCircuit) {
		t.Fatalf("expected ErrInvalidCircuit, got %v", err)
	}
}

func TestLoadGlobs_PatternWithNoMatches(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadGlobs(dir, []string{"missing-*.wires"}); err == nil {
		t.Fatalf("expected error for unmatched pattern")
	}
}

func TestLoad_MalformedFileNamesPathAndLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.txt", "123 -> x\nbroken\n")

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "bad.txt") || !strings.Contains(msg, "line 2") {
		t.Fatalf("error should name file and line: %v", err)
	}
}
