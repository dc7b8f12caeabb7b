// Package runlog persists per-run metadata and failure records so that a
// run's outcome survives the process.
//
// Layout on disk:
//
//	<baseDir>/.wireweaver/runs/<run-id>/run.json
//	<baseDir>/.wireweaver/runs/<run-id>/failure.json   (failed runs only)
//
// All writes are atomic and durable (file sync + atomic rename + dir sync),
// so a crash never leaves a half-written record behind.
package runlog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type RunMode string

const (
	// RunModeQuery resolves a single target wire.
	RunModeQuery RunMode = "query"
	// RunModePlan executes a multi-query plan file.
	RunModePlan RunMode = "plan"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persistent metadata of one resolution run.
type Run struct {
	RunID       string    `json:"run_id"`
	CircuitHash string    `json:"circuit_hash,omitempty"`
	StartTime   time.Time `json:"start_time"`
	Mode        RunMode   `json:"mode"`
	Status      RunStatus `json:"status"`

	// Targets lists the wires queried: the single target in query mode,
	// or one "<query>:<target>" entry per plan query.
	Targets []string `json:"targets,omitempty"`
}

func (r Run) Validate() error {
	var errs []error
	if strings.TrimSpace(r.RunID) == "" {
		errs = append(errs, errors.New("run_id is required"))
	}
	if r.StartTime.IsZero() {
		errs = append(errs, errors.New("start_time is required"))
	}
	switch r.Mode {
	case RunModeQuery, RunModePlan:
		// ok
	default:
		errs = append(errs, fmt.Errorf("invalid mode %q", r.Mode))
	}
	switch r.Status {
	case RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
		// ok
	default:
		errs = append(errs, fmt.Errorf("invalid status %q", r.Status))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

type FailureClass string

const (
	// FailureClassParse covers malformed wire files and plan files.
	FailureClassParse FailureClass = "parse"
	// FailureClassCircuit covers structurally invalid circuits.
	FailureClassCircuit FailureClass = "circuit"
	// FailureClassResolve covers undefined wires and wire cycles hit
	// during resolution.
	FailureClassResolve FailureClass = "resolve"
	// FailureClassSystem covers everything else (I/O, cache corruption).
	FailureClassSystem FailureClass = "system"
)

// Failure is a recorded run termination reason.
type Failure struct {
	FailureClass FailureClass `json:"failure_class"`
	Wire         *string      `json:"wire,omitempty"`
	ErrorCode    string       `json:"error_code"`
	ErrorMessage string       `json:"error_message"`
}

func (f Failure) Validate() error {
	var errs []error
	switch f.FailureClass {
	case FailureClassParse, FailureClassCircuit, FailureClassResolve, FailureClassSystem:
		// ok
	default:
		errs = append(errs, fmt.Errorf("invalid failure_class %q", f.FailureClass))
	}
	if f.Wire != nil && strings.TrimSpace(*f.Wire) == "" {
		errs = append(errs, errors.New("wire must not be empty when provided"))
	}
	if strings.TrimSpace(f.ErrorCode) == "" {
		errs = append(errs, errors.New("error_code is required"))
	}
	if strings.TrimSpace(f.ErrorMessage) == "" {
		errs = append(errs, errors.New("error_message is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
