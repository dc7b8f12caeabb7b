package circuit

import (
	"errors"
	"testing"
)

func TestNew_SingleWire(t *testing.T) {
	c, err := New([]Definition{{Wire: "x", Gate: ValueGate(Lit(123))}})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if c == nil {
		t.Fatalf("expected circuit")
	}
	if c.Hash() == "" {
		t.Fatalf("expected non-empty circuit hash")
	}
	if got := c.Names(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("unexpected names: %v", got)
	}
}

func TestNew_RejectsEmptyDefinitionList(t *testing.T) {
	_, err := New(nil)
	if !errors.Is(err, ErrInvalidCircuit) {
		t.Fatalf("expected ErrInvalidCircuit, got %v", err)
	}
}

func TestNew_RejectsEmptyWireName(t *testing.T) {
	_, err := New([]Definition{{Wire: "", Gate: ValueGate(Lit(1))}})
	if !errors.Is(err, ErrInvalidCircuit) {
		t.Fatalf("expected ErrInvalidCircuit, got %v", err)
	}
}

func TestNew_RejectsDuplicateWire(t *testing.T) {
	_, err := New([]Definition{
		{Wire: "x", Gate: ValueGate(Lit(1))},
		{Wire: "x", Gate: ValueGate(Lit(2))},
	})
	if !errors.Is(err, ErrInvalidCircuit) {
		t.Fatalf("expected ErrInvalidCircuit, got %v", err)
	}
}

func TestHash_InvariantToInsertionOrder(t *testing.T) {
	defs1 := []Definition{
		{Wire: "x", Gate: ValueGate(Lit(123))},
		{Wire: "y", Gate: ValueGate(Lit(456))},
		{Wire: "d", Gate: AndGate(Ref("x"), Ref("y"))},
	}
	defs2 := []Definition{
		{Wire: "d", Gate: AndGate(Ref("x"), Ref("y"))},
		{Wire: "y", Gate: ValueGate(Lit(456))},
		{Wire: "x", Gate: ValueGate(Lit(123))},
	}

	c1, err := New(defs1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	c2, err := New(defs2)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if c1.Hash() != c2.Hash() {
		t.Fatalf("hash should be insertion-order invariant: %s vs %s", c1.Hash(), c2.Hash())
	}
}

func TestHash_SensitiveToGateContent(t *testing.T) {
	c1, err := New([]Definition{{Wire: "x", Gate: ValueGate(Lit(123))}})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	c2, err := New([]Definition{{Wire: "x", Gate: ValueGate(Lit(124))}})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if c1.Hash() == c2.Hash() {
		t.Fatalf("different gates must produce different hashes")
	}
}

func TestWithOverride_ProducesIndependentCircuit(t *testing.T) {
	c, err := New([]Definition{
		{Wire: "a", Gate: ValueGate(Ref("b"))},
		{Wire: "b", Gate: ValueGate(Lit(44))},
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	over, err := c.WithOverride("b", ValueGate(Lit(956)))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if g, _ := c.Gate("b"); g.String() != "44" {
		t.Fatalf("original circuit mutated: b = %s", g)
	}
	if g, _ := over.Gate("b"); g.String() != "956" {
		t.Fatalf("override not applied: b = %s", g)
	}
	if c.Hash() == over.Hash() {
		t.Fatalf("override must change the circuit hash")
	}
}

func TestWithOverride_RejectsUnknownWire(t *testing.T) {
	c, err := New([]Definition{{Wire: "a", Gate: ValueGate(Lit(1))}})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	_, err = c.WithOverride("zz", ValueGate(Lit(2)))
	if !errors.Is(err, ErrUnknownWire) {
		t.Fatalf("expected ErrUnknownWire, got %v", err)
	}
}

func TestGateString_WireFileSyntax(t *testing.T) {
	cases := []struct {
		gate Gate
		want string
	}{
		{ValueGate(Lit(123)), "123"},
		{ValueGate(Ref("lv")), "lv"},
		{NotGate(Ref("x")), "NOT x"},
		{AndGate(Ref("x"), Ref("y")), "x AND y"},
		{OrGate(Lit(1), Ref("y")), "1 OR y"},
		{LShiftGate(Ref("p"), Lit(2)), "p LSHIFT 2"},
		{RShiftGate(Ref("ab"), Lit(3)), "ab RSHIFT 3"},
	}
	for _, tc := range cases {
		if got := tc.gate.String(); got != tc.want {
			t.Errorf("Gate.String() = %q, want %q", got, tc.want)
		}
	}
}
