package circuit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCircuit = errors.New("invalid circuit")
	ErrUnknownWire    = errors.New("unknown wire")
	ErrWireCycle      = errors.New("wire cycle detected")
)

// CircuitError wraps deterministic circuit construction and resolution
// failures. Kind is always one of the package sentinels so callers can branch
// with errors.Is.
type CircuitError struct {
	Kind error
	Msg  string

	// Wire names the wire at fault when one is known: the undefined wire
	// for ErrUnknownWire, the first wire on the witness path for
	// ErrWireCycle.
	Wire string
}

func (e *CircuitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *CircuitError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &CircuitError{Kind: ErrInvalidCircuit, Msg: fmt.Sprintf(format, args...)}
}

func unknownWiref(wire string, format string, args ...any) error {
	return &CircuitError{Kind: ErrUnknownWire, Msg: fmt.Sprintf(format, args...), Wire: wire}
}

func cycleError(path []string) error {
	msg := "cycle"
	wire := ""
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
		wire = path[0]
	}
	return &CircuitError{Kind: ErrWireCycle, Msg: msg, Wire: wire}
}
