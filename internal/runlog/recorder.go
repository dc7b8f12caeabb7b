package runlog

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"wireweaver/internal/batch"
	"wireweaver/internal/circuit"
	"wireweaver/internal/wirefile"
)

// Recorder writes run and failure records through a Store.
//
// Callers open a run before resolving, then close it with Succeed or Fail.
// Fail classifies the triggering error into the failure taxonomy before
// persisting it.
type Recorder struct {
	Store *Store
}

// NewRunID returns a random 128-bit hex identifier.
func (r *Recorder) NewRunID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

func (r *Recorder) Begin(run Run) error {
	if r == nil || r.Store == nil {
		return errors.New("Store is required")
	}
	if run.StartTime.IsZero() {
		run.StartTime = time.Now().UTC()
	}
	run.Status = RunStatusRunning
	return r.Store.SaveRun(run)
}

// Succeed marks the run finished, filling in the circuit hash once known.
func (r *Recorder) Succeed(runID string, circuitHash string) error {
	if r == nil || r.Store == nil {
		return errors.New("Store is required")
	}
	run, err := r.Store.LoadRun(runID)
	if err != nil {
		return err
	}
	run.Status = RunStatusSucceeded
	if circuitHash != "" {
		run.CircuitHash = circuitHash
	}
	return r.Store.SaveRun(run)
}

// Fail marks the run failed and writes the classified failure record.
func (r *Recorder) Fail(runID string, cause error) error {
	if r == nil || r.Store == nil {
		return errors.New("Store is required")
	}
	if cause == nil {
		return errors.New("nil cause")
	}
	run, err := r.Store.LoadRun(runID)
	if err != nil {
		return err
	}
	run.Status = RunStatusFailed
	if err := r.Store.SaveRun(run); err != nil {
		return err
	}
	return r.Store.SaveFailure(runID, Classify(cause))
}

// Classify maps an error onto the failure taxonomy. Sentinels from the
// circuit, wirefile, and batch packages drive the mapping; anything
// unrecognized lands in the system class.
func Classify(err error) Failure {
	switch {
	case errors.Is(err, wirefile.ErrParse):
		return Failure{
			FailureClass: FailureClassParse,
			ErrorCode:    "BadWireDefinition",
			ErrorMessage: err.Error(),
		}
	case errors.Is(err, batch.ErrInvalidPlan):
		return Failure{
			FailureClass: FailureClassParse,
			ErrorCode:    "BadPlan",
			ErrorMessage: err.Error(),
		}
	case errors.Is(err, circuit.ErrInvalidCircuit):
		return Failure{
			FailureClass: FailureClassCircuit,
			ErrorCode:    "InvalidCircuit",
			ErrorMessage: err.Error(),
		}
	case errors.Is(err, circuit.ErrUnknownWire):
		return Failure{
			FailureClass: FailureClassResolve,
			Wire:         wireOf(err),
			ErrorCode:    "UnknownWire",
			ErrorMessage: err.Error(),
		}
	case errors.Is(err, circuit.ErrWireCycle):
		return Failure{
			FailureClass: FailureClassResolve,
			Wire:         wireOf(err),
			ErrorCode:    "WireCycle",
			ErrorMessage: err.Error(),
		}
	default:
		return Failure{
			FailureClass: FailureClassSystem,
			ErrorCode:    "SystemError",
			ErrorMessage: err.Error(),
		}
	}
}

// wireOf extracts the wire a resolve failure names, when the circuit error
// carries one.
func wireOf(err error) *string {
	var cerr *circuit.CircuitError
	if errors.As(err, &cerr) && cerr.Wire != "" {
		w := cerr.Wire
		return &w
	}
	return nil
}
