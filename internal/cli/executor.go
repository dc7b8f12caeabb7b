package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wireweaver/internal/batch"
	"wireweaver/internal/circuit"
	"wireweaver/internal/resultcache"
	"wireweaver/internal/runlog"
	"wireweaver/internal/trace"
	"wireweaver/internal/wirefile"
)

// CLIResult is the outcome of one invocation.
type CLIResult struct {
	ExitCode int
	RunID    string
	Run      *batch.RunResult
}

// Execute runs a canonical invocation, printing query results to stdout.
func Execute(ctx context.Context, inv CLIInvocation) (CLIResult, error) {
	return ExecuteWithOutput(ctx, inv, os.Stdout)
}

// ExecuteWithOutput maps a canonical CLIInvocation to a resolution run.
//
// Responsibilities:
//   - Load the circuit from the -circuit patterns.
//   - Build the plan: the given plan file, or a synthetic single-query plan
//     from -target and -override.
//   - Initialize the trace file before resolving and finalize it after,
//     even on panic or failure.
//   - Record the run outcome in the run log and translate errors to
//     semantic exit codes.
//
// Results go to stdout as one "<query> = <value>" line per query, in plan
// order; logs go to stderr.
func ExecuteWithOutput(ctx context.Context, inv CLIInvocation, stdout io.Writer) (res CLIResult, execErr error) {
	res.ExitCode = ExitInternalError
	if stdout == nil {
		return res, fmt.Errorf("nil stdout")
	}

	logger := newLogger(inv.Verbose)
	defer func() { _ = logger.Sync() }()

	// Initialize the run log as early as possible so failures can be recorded.
	st, _ := runlog.NewStore(inv.WorkDir)
	rec := &runlog.Recorder{Store: st}
	runID, _ := rec.NewRunID()
	res.RunID = runID

	mode := runlog.RunModePlan
	var targets []string
	if inv.Target != "" {
		mode = runlog.RunModeQuery
		targets = []string{inv.Target}
	}
	if runID != "" {
		_ = rec.Begin(runlog.Run{RunID: runID, Mode: mode, Targets: targets})
	}

	fail := func(code int, err error) (CLIResult, error) {
		logger.Error("run failed", zap.Error(err))
		if runID != "" {
			_ = rec.Fail(runID, err)
		}
		res.ExitCode = code
		return res, err
	}

	// Reserve the trace destination before touching any other input, so a
	// failed run still leaves a trace artifact.
	traceWriter, err := newTraceWriter(inv)
	if err != nil {
		return fail(ExitConfigError, err)
	}
	var recorder *trace.Recorder
	var sink trace.Sink
	if inv.Trace.Enabled {
		recorder = trace.NewRecorder()
		sink = recorder
	}
	defer func() {
		// Always finalize the trace file deterministically.
		_ = traceWriter.Finalize(recorder)
	}()

	circ, err := wirefile.LoadGlobs(inv.WorkDir, inv.CircuitPatterns)
	if err != nil {
		return fail(ExitConfigError, err)
	}
	if err := circ.Validate(); err != nil {
		return fail(exitCodeForError(err), err)
	}
	if ce := logger.Check(zapcore.DebugLevel, "circuit loaded"); ce != nil {
		maxDepth := 0
		if depths, err := circ.Depths(); err == nil {
			for _, d := range depths {
				if d > maxDepth {
					maxDepth = d
				}
			}
		}
		ce.Write(
			zap.Int("wires", circ.Len()),
			zap.Int("max_depth", maxDepth),
			zap.String("circuit_hash", circ.Hash().String()))
	}
	if err := traceWriter.SetCircuitHash(circ.Hash().String()); err != nil {
		return fail(ExitConfigError, err)
	}

	plan, err := buildPlan(inv)
	if err != nil {
		return fail(ExitConfigError, err)
	}

	cache, err := openCache(inv.CacheDir)
	if err != nil {
		return fail(ExitConfigError, err)
	}

	defer func() {
		if r := recover(); r != nil {
			execErr = fmt.Errorf("panic: %v", r)
			logger.Error("run panicked", zap.Error(execErr))
			if runID != "" {
				_ = rec.Fail(runID, execErr)
			}
			res.ExitCode = ExitInternalError
			res.Run = nil
		}
	}()

	runner := &batch.Runner{
		Circuit:     circ,
		Cache:       cache,
		Sink:        sink,
		Parallelism: inv.Parallelism,
	}
	out, err := runner.Run(ctx, plan)
	if err != nil {
		return fail(exitCodeForError(err), err)
	}
	res.Run = out

	for _, qr := range out.Results {
		logger.Debug("query resolved",
			zap.String("query", qr.Query),
			zap.String("target", qr.Target),
			zap.Uint16("value", qr.Value),
			zap.String("state", string(qr.State)))
		fmt.Fprintf(stdout, "%s = %d\n", qr.Query, qr.Value)
	}

	if runID != "" {
		_ = rec.Succeed(runID, out.CircuitHash.String())
	}
	res.ExitCode = ExitSuccess
	return res, nil
}

// buildPlan loads the plan file, or synthesizes a single-query plan from
// -target and -override. The synthetic query is named after its target.
func buildPlan(inv CLIInvocation) (*batch.Plan, error) {
	if inv.PlanPath != "" {
		return batch.LoadPlan(inv.PlanPath)
	}

	q := batch.Query{Name: inv.Target, Target: inv.Target}
	for _, ov := range inv.Overrides {
		q.Overrides = append(q.Overrides, batch.Override{Wire: ov.Wire, Gate: ov.Gate})
	}
	p := &batch.Plan{Queries: []batch.Query{q}}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func openCache(cacheDir string) (resultcache.Cache, error) {
	if cacheDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return resultcache.NewFileCache(cacheDir), nil
}

// exitCodeForError maps run errors onto the semantic exit codes. Resolution
// failures (undefined wires, cycles) are the caller's data problem; broken
// inputs are configuration problems; everything else is internal.
func exitCodeForError(err error) int {
	switch {
	case errors.Is(err, circuit.ErrUnknownWire), errors.Is(err, circuit.ErrWireCycle):
		return ExitResolutionFailure
	case errors.Is(err, wirefile.ErrParse),
		errors.Is(err, circuit.ErrInvalidCircuit),
		errors.Is(err, batch.ErrInvalidPlan):
		return ExitConfigError
	default:
		return ExitInternalError
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

type traceFileWriter struct {
	enabled     bool
	path        string
	circuitHash string
}

// newTraceWriter eagerly reserves the trace destination (as an empty file)
// so even a run that dies before loading the circuit leaves an artifact.
// The canonical empty trace is written once the circuit hash is known.
func newTraceWriter(inv CLIInvocation) (*traceFileWriter, error) {
	if !inv.Trace.Enabled {
		return &traceFileWriter{enabled: false}, nil
	}
	if inv.Trace.Path == "" {
		return nil, fmt.Errorf("trace enabled but path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(inv.Trace.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	w := &traceFileWriter{enabled: true, path: inv.Trace.Path}
	return w, writeFileAtomic(w.path, nil, 0o644)
}

// SetCircuitHash records the circuit identity and replaces the reservation
// with the canonical empty trace.
func (w *traceFileWriter) SetCircuitHash(circuitHash string) error {
	if w == nil || !w.enabled {
		return nil
	}
	w.circuitHash = circuitHash
	return w.writeTrace(trace.ResolutionTrace{CircuitHash: circuitHash})
}

func (w *traceFileWriter) Finalize(rec *trace.Recorder) error {
	if w == nil || !w.enabled {
		return nil
	}
	if w.circuitHash == "" {
		// Failed before the circuit loaded; keep the reservation as-is.
		return nil
	}
	if rec == nil {
		// No events collected (e.g. internal error before the run); keep
		// the valid empty trace.
		return w.writeTrace(trace.ResolutionTrace{CircuitHash: w.circuitHash})
	}
	return w.writeTrace(rec.Trace(w.circuitHash))
}

func (w *traceFileWriter) writeTrace(t trace.ResolutionTrace) error {
	b, err := t.CanonicalJSON()
	if err != nil {
		return err
	}
	return writeFileAtomic(w.path, b, 0o644)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync() // best-effort durability
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
