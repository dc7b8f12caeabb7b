// Package wirefile parses the textual wire-definition format into circuit
// definitions.
//
// Each non-empty line defines one wire:
//
//	123 -> x          direct value
//	lv -> e           passthrough of another wire
//	NOT x -> h        16-bit complement
//	x AND y -> d      bitwise AND (likewise OR)
//	p LSHIFT 2 -> q   left shift (likewise RSHIFT)
//
// Operands are decimal 16-bit literals or lowercase wire names. Parsing is
// strict: any line not matching one of the forms above is an error.
package wirefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"wireweaver/internal/circuit"
)

// ErrParse matches any wire-definition parse failure via errors.Is.
var ErrParse = errors.New("invalid wire definition")

// ParseError reports a malformed definition line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func parseErrorf(format string, args ...any) error {
	return &ParseError{Err: fmt.Errorf(format, args...)}
}

var (
	reWire       = regexp.MustCompile(`^[a-z]+$`)
	reGateValue  = regexp.MustCompile(`^([a-z]+|\d+)$`)
	reGateUnary  = regexp.MustCompile(`^NOT ([a-z]+|\d+)$`)
	reGateBinary = regexp.MustCompile(`^([a-z]+|\d+) (AND|OR|LSHIFT|RSHIFT) ([a-z]+|\d+)$`)
)

// ParseOperand parses a single operand token: a decimal literal in
// [0, 65535] or a lowercase wire name.
func ParseOperand(token string) (circuit.Operand, error) {
	if token == "" {
		return circuit.Operand{}, parseErrorf("empty operand")
	}
	if token[0] >= '0' && token[0] <= '9' {
		v, err := strconv.ParseUint(token, 10, 16)
		if err != nil {
			return circuit.Operand{}, parseErrorf("literal %q is not a 16-bit value", token)
		}
		return circuit.Lit(uint16(v)), nil
	}
	if !reWire.MatchString(token) {
		return circuit.Operand{}, parseErrorf("bad operand %q", token)
	}
	return circuit.Ref(token), nil
}

// ParseGate parses a gate expression without the "-> wire" suffix, e.g.
// "123", "NOT x", "x AND y", "p LSHIFT 2".
func ParseGate(expr string) (circuit.Gate, error) {
	expr = strings.TrimSpace(expr)

	if m := reGateUnary.FindStringSubmatch(expr); m != nil {
		op, err := ParseOperand(m[1])
		if err != nil {
			return circuit.Gate{}, err
		}
		return circuit.NotGate(op), nil
	}

	if m := reGateBinary.FindStringSubmatch(expr); m != nil {
		left, err := ParseOperand(m[1])
		if err != nil {
			return circuit.Gate{}, err
		}
		right, err := ParseOperand(m[3])
		if err != nil {
			return circuit.Gate{}, err
		}
		switch m[2] {
		case "AND":
			return circuit.AndGate(left, right), nil
		case "OR":
			return circuit.OrGate(left, right), nil
		case "LSHIFT":
			return circuit.LShiftGate(left, right), nil
		case "RSHIFT":
			return circuit.RShiftGate(left, right), nil
		}
	}

	if m := reGateValue.FindStringSubmatch(expr); m != nil {
		op, err := ParseOperand(m[1])
		if err != nil {
			return circuit.Gate{}, err
		}
		return circuit.ValueGate(op), nil
	}

	return circuit.Gate{}, parseErrorf("bad gate expression %q", expr)
}

// ParseLine parses one wire-definition line.
func ParseLine(line string) (circuit.Definition, error) {
	line = strings.TrimSpace(line)

	expr, wire, found := strings.Cut(line, " -> ")
	if !found {
		return circuit.Definition{}, parseErrorf("bad definition line %q", line)
	}
	if !reWire.MatchString(wire) {
		return circuit.Definition{}, parseErrorf("bad wire name %q", wire)
	}
	gate, err := ParseGate(expr)
	if err != nil {
		return circuit.Definition{}, err
	}
	return circuit.Definition{Wire: wire, Gate: gate}, nil
}

// Parse reads wire definitions from r, one per line. Blank lines are
// skipped. The first malformed line aborts parsing with its line number.
func Parse(r io.Reader) ([]circuit.Definition, error) {
	var defs []circuit.Definition

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		def, err := ParseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Err: err}
		}
		defs = append(defs, def)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}
	return defs, nil
}
