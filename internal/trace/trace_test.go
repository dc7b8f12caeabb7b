package trace

import (
	"bytes"
	"testing"
)

func TestCanonicalTraceStability_ByteForByte(t *testing.T) {
	trace1 := ResolutionTrace{
		CircuitHash: "circuit-abc",
		Events: []TraceEvent{
			{Kind: EventWireEvaluated, Wire: "b", Gate: "NOT a", Value: 65412},
			{Kind: EventWireEvaluated, Wire: "a", Gate: "123", Value: 123},
			{Kind: EventWireCacheHit, Wire: "a", Value: 123},
		},
	}

	trace2 := ResolutionTrace{
		CircuitHash: "circuit-abc",
		Events: []TraceEvent{
			{Kind: EventWireCacheHit, Wire: "a", Value: 123},
			{Kind: EventWireEvaluated, Wire: "a", Value: 123, Gate: "123"},
			{Kind: EventWireEvaluated, Wire: "b", Value: 65412, Gate: "NOT a"},
		},
	}

	b1, err := trace1.CanonicalJSON()
	if err != nil {
		t.Fatalf("canonical json (1): %v", err)
	}
	b2, err := trace2.CanonicalJSON()
	if err != nil {
		t.Fatalf("canonical json (2): %v", err)
	}

	if !bytes.Equal(b1, b2) {
		t.Fatalf("expected identical bytes\n1=%s\n2=%s", string(b1), string(b2))
	}
}

func TestCanonicalOrdering_SortsByWire(t *testing.T) {
	tr := ResolutionTrace{
		CircuitHash: "circuit-abc",
		Events: []TraceEvent{
			{Kind: EventWireEvaluated, Wire: "y", Gate: "456", Value: 456},
			{Kind: EventWireEvaluated, Wire: "x", Gate: "123", Value: 123},
		},
	}
	b, err := tr.CanonicalJSON()
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	// Expect wire x before y.
	expected := `{"circuitHash":"circuit-abc","events":[{"kind":"WireEvaluated","wire":"x","gate":"123","value":123},{"kind":"WireEvaluated","wire":"y","gate":"456","value":456}]}`
	if string(b) != expected {
		t.Fatalf("unexpected canonical bytes\nexpected=%s\nactual  =%s", expected, string(b))
	}
}

func TestCanonicalOrdering_OverrideBeforeEvaluation(t *testing.T) {
	tr := ResolutionTrace{
		CircuitHash: "c",
		Events: []TraceEvent{
			{Kind: EventWireEvaluated, Wire: "b", Gate: "956", Value: 956},
			{Kind: EventWireOverridden, Wire: "b", Gate: "956", Value: 956},
		},
	}
	b, err := tr.CanonicalJSON()
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	expected := `{"circuitHash":"c","events":[{"kind":"WireOverridden","wire":"b","gate":"956","value":956},{"kind":"WireEvaluated","wire":"b","gate":"956","value":956}]}`
	if string(b) != expected {
		t.Fatalf("unexpected canonical bytes\nexpected=%s\nactual  =%s", expected, string(b))
	}
}

func TestHash_Deterministic(t *testing.T) {
	tr1 := ResolutionTrace{CircuitHash: "c", Events: []TraceEvent{{Kind: EventWireCacheHit, Wire: "a", Value: 7}}}
	tr2 := ResolutionTrace{CircuitHash: "c", Events: []TraceEvent{{Kind: EventWireCacheHit, Wire: "a", Value: 7}}}

	h1, err := tr1.Hash()
	if err != nil {
		t.Fatalf("hash (1): %v", err)
	}
	h2, err := tr2.Hash()
	if err != nil {
		t.Fatalf("hash (2): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical hash, got %q != %q", h1, h2)
	}
}

func TestHash_IgnoresInsertionOrder_WhenSemanticallyEquivalent(t *testing.T) {
	tr1 := ResolutionTrace{
		CircuitHash: "c",
		Events: []TraceEvent{
			{Kind: EventWireEvaluated, Wire: "b", Gate: "a OR a", Value: 3},
			{Kind: EventWireEvaluated, Wire: "a", Gate: "3", Value: 3},
		},
	}
	tr2 := ResolutionTrace{
		CircuitHash: "c",
		Events: []TraceEvent{
			{Kind: EventWireEvaluated, Wire: "a", Gate: "3", Value: 3},
			{Kind: EventWireEvaluated, Wire: "b", Gate: "a OR a", Value: 3},
		},
	}

	h1, err := tr1.Hash()
	if err != nil {
		t.Fatalf("hash (1): %v", err)
	}
	h2, err := tr2.Hash()
	if err != nil {
		t.Fatalf("hash (2): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected equal hash for semantically equivalent traces, got %q != %q", h1, h2)
	}
}

func TestValidate_RequiresWireAndKind(t *testing.T) {
	tr := ResolutionTrace{CircuitHash: "c", Events: []TraceEvent{{Kind: EventWireEvaluated}}}
	if _, err := tr.CanonicalJSON(); err == nil {
		t.Fatalf("expected error for event without wire")
	}

	tr = ResolutionTrace{CircuitHash: "c", Events: []TraceEvent{{Wire: "a"}}}
	if _, err := tr.CanonicalJSON(); err == nil {
		t.Fatalf("expected error for event without kind")
	}

	tr = ResolutionTrace{Events: []TraceEvent{{Kind: EventWireCacheHit, Wire: "a"}}}
	if _, err := tr.CanonicalJSON(); err == nil {
		t.Fatalf("expected error for trace without circuit hash")
	}
}

func TestRecorder_CollectsAndCanonicalizes(t *testing.T) {
	rec := NewRecorder()
	rec.Record(TraceEvent{Kind: EventWireEvaluated, Wire: "y", Gate: "456", Value: 456})
	rec.Record(TraceEvent{Kind: EventWireEvaluated, Wire: "x", Gate: "123", Value: 123})

	tr := rec.Trace("circuit-abc")
	if len(tr.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(tr.Events))
	}
	if tr.Events[0].Wire != "x" || tr.Events[1].Wire != "y" {
		t.Fatalf("expected canonical wire order, got %+v", tr.Events)
	}
}

func TestSafeRecord_SwallowsPanics(t *testing.T) {
	SafeRecord(panickySink{}, TraceEvent{Kind: EventWireCacheHit, Wire: "a"})
	SafeRecord(nil, TraceEvent{Kind: EventWireCacheHit, Wire: "a"})
}

type panickySink struct{}

func (panickySink) Record(TraceEvent) { panic("sink bug") }
