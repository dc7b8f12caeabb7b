// Package trace records deterministic resolution traces.
//
// A trace captures the logical facts of a resolution run — which wires were
// evaluated, which were served from cache, which were overridden — never
// timestamps, durations, or anything runtime-dependent. Canonicalized traces
// have byte-stable JSON encodings, so two runs over the same circuit and
// queries produce identical trace bytes and identical trace hashes.
package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ResolutionTrace is the canonical record of one resolution run.
//
// CircuitHash is a string to avoid coupling this package to the circuit
// implementation; it should carry the circuit's deterministic identity.
//
// Canonical representation:
//   - Events are totally ordered by Canonicalize().
//   - JSON serialization uses a custom marshaler to fix field order.
//
// The trace is observational only and must never affect resolution behavior.
type ResolutionTrace struct {
	CircuitHash string
	Events      []TraceEvent
}

// TraceEventKind is the stable discriminator for TraceEvent.
//
// The string values are part of the trace's canonical bytes; do not rename.
type TraceEventKind string

const (
	EventWireOverridden TraceEventKind = "WireOverridden"
	EventWireEvaluated  TraceEventKind = "WireEvaluated"
	EventWireCacheHit   TraceEventKind = "WireCacheHit"
)

// TraceEvent is a single logical resolution fact.
//
// Determinism constraints:
//   - No timestamps.
//   - No error strings / stack traces.
//   - No fields derived from pointer identity or map iteration.
type TraceEvent struct {
	Kind TraceEventKind

	// Wire names the wire the event refers to. Required.
	Wire string

	// Query identifies the query that produced the event, for runs that
	// resolve several queries. Empty for single-target runs.
	Query string

	// Gate is the wire-file rendering of the gate involved: the evaluated
	// gate for WireEvaluated, the replacement gate for WireOverridden.
	Gate string

	// Value is the 16-bit value delivered to the wire.
	Value uint16
}

// Validate checks basic invariants and returns a descriptive error.
func (t *ResolutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.CircuitHash == "" {
		return errors.New("circuitHash is required")
	}
	for i := range t.Events {
		e := t.Events[i]
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.Wire == "" {
			return fmt.Errorf("events[%d].wire is required", i)
		}
	}
	return nil
}

// Canonicalize sorts the trace into its canonical form.
//
// The ordering is total and independent of evaluation order or concurrency:
// events are stably sorted by (query, wire, kindOrder, gate, value).
func (t *ResolutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	sort.SliceStable(t.Events, func(i, j int) bool {
		a := t.Events[i]
		b := t.Events[j]

		if a.Query != b.Query {
			return a.Query < b.Query
		}
		if a.Wire != b.Wire {
			return a.Wire < b.Wire
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Gate != b.Gate {
			return a.Gate < b.Gate
		}
		return a.Value < b.Value
	})
}

func kindOrder(k TraceEventKind) int {
	switch k {
	case EventWireOverridden:
		return 10
	case EventWireEvaluated:
		return 20
	case EventWireCacheHit:
		return 30
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
// It canonicalizes a copy of the trace to avoid mutating the caller's slices.
func (t ResolutionTrace) CanonicalJSON() ([]byte, error) {
	copyTrace := ResolutionTrace{CircuitHash: t.CircuitHash}
	copyTrace.Events = make([]TraceEvent, len(t.Events))
	copy(copyTrace.Events, t.Events)
	copyTrace.Canonicalize()
	if err := copyTrace.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&copyTrace)
}

// Hash returns the deterministic trace hash (sha256 hex) of the canonical
// JSON bytes.
func (t ResolutionTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON ensures canonical field ordering.
//
// Canonicalization (event sorting) is the responsibility of CanonicalJSON();
// MarshalJSON does not sort, to avoid surprising mutation, but its field
// ordering is deterministic regardless.
func (t ResolutionTrace) MarshalJSON() ([]byte, error) {
	if t.CircuitHash == "" {
		return nil, errors.New("circuitHash is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString("\"circuitHash\":")
	ch, _ := json.Marshal(t.CircuitHash)
	buf.Write(ch)
	buf.WriteByte(',')

	buf.WriteString("\"events\":[")
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteByte(']')

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON ensures canonical field ordering and omission of empty
// optional fields.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	if e.Wire == "" {
		return nil, errors.New("wire is required")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString("\"kind\":")
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	buf.WriteByte(',')
	buf.WriteString("\"wire\":")
	wb, _ := json.Marshal(e.Wire)
	buf.Write(wb)

	if e.Query != "" {
		buf.WriteByte(',')
		buf.WriteString("\"query\":")
		qb, _ := json.Marshal(e.Query)
		buf.Write(qb)
	}

	if e.Gate != "" {
		buf.WriteByte(',')
		buf.WriteString("\"gate\":")
		gb, _ := json.Marshal(e.Gate)
		buf.Write(gb)
	}

	buf.WriteByte(',')
	buf.WriteString("\"value\":")
	buf.WriteString(strconv.FormatUint(uint64(e.Value), 10))

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
