package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	ExitSuccess           = 0
	ExitResolutionFailure = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

type TraceConfig struct {
	Enabled bool
	Path    string
}

// OverrideSpec is one parsed -override flag: the wire and the gate
// expression that replaces its definition.
type OverrideSpec struct {
	Wire string
	Gate string
}

// CLIInvocation is the fully canonicalized, deterministic description of a run.
//
// All paths are normalized (Clean) and all relative paths are resolved
// relative to WorkDir.
//
// NOTE: WorkDir is required and must be absolute; this prevents any
// dependency on the process current working directory.
type CLIInvocation struct {
	WorkDir string

	// CircuitPatterns are the -circuit glob patterns, kept relative so the
	// loader resolves them under WorkDir.
	CircuitPatterns []string

	// Target is the wire queried in single-query mode. Mutually exclusive
	// with PlanPath.
	Target    string
	Overrides []OverrideSpec

	// PlanPath is the resolved plan file in plan mode.
	PlanPath string

	CacheDir    string
	Trace       TraceConfig
	Parallelism int
	Verbose     bool

	OriginalPlan  string
	OriginalTrace string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// stringList collects a repeatable string flag in order of appearance.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// ParseInvocation parses CLI flags into a canonical CLIInvocation.
//
// Determinism goals:
//   - Does not read env vars.
//   - Does not read/assume the process CWD.
//   - Requires WorkDir to be explicit and absolute.
func ParseInvocation(args []string) (CLIInvocation, error) {
	fs := flag.NewFlagSet("wireweaver", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var workDir string
	var circuits stringList
	var target string
	var overrides stringList
	var planPath string
	var cacheDir string
	var tracePath string
	var parallelism int
	var verbose bool

	fs.StringVar(&workDir, "workdir", "", "Absolute working directory. Required.")
	fs.Var(&circuits, "circuit", "Wire-definition file or glob, relative to workdir. Repeatable. Required.")
	fs.StringVar(&target, "target", "", "Wire to resolve (single-query mode).")
	fs.Var(&overrides, "override", "Wire override as wire=gate, e.g. b=956. Repeatable.")
	fs.StringVar(&planPath, "plan", "", "Plan file for multi-query runs.")
	fs.StringVar(&cacheDir, "cache-dir", "", "Result cache directory (optional).")
	fs.StringVar(&tracePath, "trace", "", "Trace output path (optional).")
	fs.IntVar(&parallelism, "parallelism", 0, "Max concurrent queries in plan mode (0 = unbounded).")
	fs.BoolVar(&verbose, "v", false, "Verbose (debug) logging.")

	// We intentionally do not accept environment-derived defaults.
	if err := fs.Parse(args); err != nil {
		return CLIInvocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return CLIInvocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	workDir = filepath.Clean(workDir)
	if workDir == "" || workDir == "." {
		return CLIInvocation{}, invalidInvocationf("--workdir is required")
	}
	if !filepath.IsAbs(workDir) {
		return CLIInvocation{}, invalidInvocationf("--workdir must be an absolute path (got %q)", workDir)
	}

	if len(circuits) == 0 {
		return CLIInvocation{}, invalidInvocationf("at least one --circuit is required")
	}
	for _, p := range circuits {
		if strings.TrimSpace(p) == "" {
			return CLIInvocation{}, invalidInvocationf("--circuit must not be empty")
		}
	}

	hasTarget := strings.TrimSpace(target) != ""
	hasPlan := strings.TrimSpace(planPath) != ""
	if hasTarget == hasPlan {
		return CLIInvocation{}, invalidInvocationf("exactly one of --target and --plan is required")
	}
	if hasPlan && len(overrides) > 0 {
		return CLIInvocation{}, invalidInvocationf("--override is only valid with --target; use the plan's overrides instead")
	}
	if parallelism < 0 {
		return CLIInvocation{}, invalidInvocationf("--parallelism must be >= 0 (got %d)", parallelism)
	}

	parsedOverrides, err := parseOverrideSpecs(overrides)
	if err != nil {
		return CLIInvocation{}, err
	}

	inv := CLIInvocation{
		WorkDir:         workDir,
		CircuitPatterns: append([]string(nil), circuits...),
		Target:          target,
		Overrides:       parsedOverrides,
		Parallelism:     parallelism,
		Verbose:         verbose,
		OriginalPlan:    planPath,
		OriginalTrace:   tracePath,
	}

	if hasPlan {
		resolved, err := resolveUnderWorkDir(workDir, planPath)
		if err != nil {
			return CLIInvocation{}, err
		}
		inv.PlanPath = resolved
	}
	if strings.TrimSpace(cacheDir) != "" {
		resolved, err := resolveUnderWorkDir(workDir, cacheDir)
		if err != nil {
			return CLIInvocation{}, err
		}
		inv.CacheDir = resolved
	}
	if strings.TrimSpace(tracePath) != "" {
		resolved, err := resolveUnderWorkDir(workDir, tracePath)
		if err != nil {
			return CLIInvocation{}, err
		}
		inv.Trace = TraceConfig{Enabled: true, Path: resolved}
	}

	return inv, nil
}

func parseOverrideSpecs(raw []string) ([]OverrideSpec, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]OverrideSpec, 0, len(raw))
	for _, s := range raw {
		wire, gate, found := strings.Cut(s, "=")
		wire = strings.TrimSpace(wire)
		gate = strings.TrimSpace(gate)
		if !found || wire == "" || gate == "" {
			return nil, invalidInvocationf("invalid --override %q (expected wire=gate)", s)
		}
		out = append(out, OverrideSpec{Wire: wire, Gate: gate})
	}
	return out, nil
}

func resolveUnderWorkDir(workDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}

	// If absolute, accept as-is; it is still deterministic.
	// If relative, resolve under WorkDir.
	if filepath.IsAbs(clean) {
		return clean, nil
	}

	// WorkDir is required to be absolute, so Join does not consult process CWD.
	return filepath.Clean(filepath.Join(workDir, clean)), nil
}

// ExitCode extracts a semantic exit code from a ParseInvocation error.
// If the error is not a known invocation error, it returns ExitInternalError.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
