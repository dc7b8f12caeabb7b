package circuit

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// CircuitHash is the deterministic identity of a Circuit.
//
// It is computed solely from wire names and gate content in canonical
// (sorted-name) order. It MUST be stable across different insertion orders
// of definitions.
type CircuitHash string

// String returns the string representation of the CircuitHash.
func (h CircuitHash) String() string { return string(h) }

// Circuit is an immutable mapping from wire name to the gate feeding it.
//
// A Circuit is never mutated after construction; override passes produce a
// fresh, fully independent Circuit via WithOverride. It is safe for
// concurrent read access.
type Circuit struct {
	gates map[string]Gate
	names []string // canonical order (sorted)
	hash  CircuitHash
}

// New builds a Circuit from the given definitions.
//
// Validation runs immediately and rejects:
//   - an empty definition list
//   - empty wire names
//   - duplicate wire names
//
// References to wires that are never defined are legal here: they are
// reported lazily at resolution time, or eagerly by Validate.
func New(defs []Definition) (*Circuit, error) {
	if len(defs) == 0 {
		return nil, invalidf("no wire definitions")
	}

	gates := make(map[string]Gate, len(defs))
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		if d.Wire == "" {
			return nil, invalidf("wire name is required")
		}
		if _, exists := gates[d.Wire]; exists {
			return nil, invalidf("duplicate wire definition: %q", d.Wire)
		}
		gates[d.Wire] = d.Gate
		names = append(names, d.Wire)
	}
	sort.Strings(names)

	c := &Circuit{gates: gates, names: names}
	c.hash = c.computeHash()
	return c, nil
}

// Gate returns the gate feeding the named wire.
func (c *Circuit) Gate(name string) (Gate, bool) {
	g, ok := c.gates[name]
	return g, ok
}

// Names returns the wire names in canonical (sorted) order.
func (c *Circuit) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of wires in the circuit.
func (c *Circuit) Len() int { return len(c.names) }

// Hash returns the stable identity for this circuit.
func (c *Circuit) Hash() CircuitHash { return c.hash }

// WithOverride returns a new Circuit identical to the receiver except that
// the named wire is fed by the given gate instead of its original one.
//
// The returned Circuit shares no mutable state with the receiver; resolving
// against it is a fully independent pass. Overriding a wire the circuit does
// not define is an error.
func (c *Circuit) WithOverride(wire string, gate Gate) (*Circuit, error) {
	if _, ok := c.gates[wire]; !ok {
		return nil, unknownWiref(wire, "cannot override undefined wire %q", wire)
	}

	gates := make(map[string]Gate, len(c.gates))
	for name, g := range c.gates {
		gates[name] = g
	}
	gates[wire] = gate

	names := make([]string, len(c.names))
	copy(names, c.names)

	next := &Circuit{gates: gates, names: names}
	next.hash = next.computeHash()
	return next, nil
}

// computeHash hashes the canonical definition list: for each wire in sorted
// order, the wire name and the gate's kind and operand renderings. All fields
// are length-prefixed to avoid ambiguity.
func (c *Circuit) computeHash() CircuitHash {
	h := sha256.New()

	writeField := func(data []byte) {
		length := uint64(len(data))
		lengthBytes := []byte{
			byte(length >> 56),
			byte(length >> 48),
			byte(length >> 40),
			byte(length >> 32),
			byte(length >> 24),
			byte(length >> 16),
			byte(length >> 8),
			byte(length),
		}
		h.Write(lengthBytes)
		h.Write(data)
	}

	writeField([]byte{byte(len(c.names) >> 8), byte(len(c.names))})
	for _, name := range c.names {
		g := c.gates[name]
		writeField([]byte(name))
		writeField([]byte(g.Kind))
		writeField([]byte(g.Left.String()))
		writeField([]byte(g.Right.String()))
	}

	sum := h.Sum(nil)
	return CircuitHash(hex.EncodeToString(sum))
}
