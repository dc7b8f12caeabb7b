package circuit

// GateKind is the stable discriminator for the closed set of gate operations.
//
// The string values match the wire-file syntax and contribute to circuit
// identity hashing; do not rename.
type GateKind string

const (
	GateValue  GateKind = "VALUE"
	GateAnd    GateKind = "AND"
	GateOr     GateKind = "OR"
	GateLShift GateKind = "LSHIFT"
	GateRShift GateKind = "RSHIFT"
	GateNot    GateKind = "NOT"
)

// Gate is one operation feeding a wire.
//
// VALUE and NOT use only Left; the binary kinds use Left and Right. For the
// shift kinds, Right is the shift amount.
type Gate struct {
	Kind  GateKind
	Left  Operand
	Right Operand
}

// ValueGate returns a passthrough gate delivering op.
func ValueGate(op Operand) Gate {
	return Gate{Kind: GateValue, Left: op}
}

// NotGate returns a gate delivering the 16-bit complement of op.
func NotGate(op Operand) Gate {
	return Gate{Kind: GateNot, Left: op}
}

// AndGate returns a gate delivering left AND right.
func AndGate(left, right Operand) Gate {
	return Gate{Kind: GateAnd, Left: left, Right: right}
}

// OrGate returns a gate delivering left OR right.
func OrGate(left, right Operand) Gate {
	return Gate{Kind: GateOr, Left: left, Right: right}
}

// LShiftGate returns a gate delivering left shifted up by the value of amount.
func LShiftGate(left, amount Operand) Gate {
	return Gate{Kind: GateLShift, Left: left, Right: amount}
}

// RShiftGate returns a gate delivering left shifted down by the value of amount.
func RShiftGate(left, amount Operand) Gate {
	return Gate{Kind: GateRShift, Left: left, Right: amount}
}

// unary reports whether the gate kind consumes only the Left operand.
func (g Gate) unary() bool {
	return g.Kind == GateValue || g.Kind == GateNot
}

// operands returns the operands the gate actually consumes.
func (g Gate) operands() []Operand {
	if g.unary() {
		return []Operand{g.Left}
	}
	return []Operand{g.Left, g.Right}
}

// references returns the wire names the gate depends on, in operand order.
// Literal operands contribute nothing.
func (g Gate) references() []string {
	refs := make([]string, 0, 2)
	for _, op := range g.operands() {
		if op.IsRef() {
			refs = append(refs, op.Wire())
		}
	}
	return refs
}

// String renders the gate in wire-file syntax (without the "-> wire" suffix):
// "123", "x", "NOT x", "x AND y", "p LSHIFT 2".
func (g Gate) String() string {
	switch g.Kind {
	case GateValue:
		return g.Left.String()
	case GateNot:
		return "NOT " + g.Left.String()
	default:
		return g.Left.String() + " " + string(g.Kind) + " " + g.Right.String()
	}
}

// Definition binds a wire name to the gate feeding it. It is the unit the
// wire-file parser emits and the circuit constructor consumes.
type Definition struct {
	Wire string
	Gate Gate
}
