package circuit

// Observer receives resolution events.
//
// Implementations must be inert: they must not mutate the circuit or depend
// on being called (the resolver behaves identically with a nil observer).
type Observer interface {
	// WireEvaluated is called exactly once per wire whose gate the pass
	// actually evaluates.
	WireEvaluated(wire string, gate Gate, value uint16)

	// WireCacheHit is called each time a wire's value is served from the
	// resolution cache instead of re-evaluating its gate.
	WireCacheHit(wire string, value uint16)
}

// Resolver performs memoized evaluation passes over a single Circuit.
//
// The resolver owns the only mutable state in this package: the resolution
// cache mapping wire names to already-computed values, and the on-path set
// used for cycle detection. The cache is shared across repeated Resolve
// calls on the same Resolver, so each wire's gate is evaluated at most once
// per Resolver regardless of fan-in or query count. Independent Resolvers
// (including ones over circuits produced by WithOverride) share nothing.
//
// A Resolver is not safe for concurrent use; parallel queries must each use
// their own Resolver.
type Resolver struct {
	// Observer, if non-nil, is notified of gate evaluations and cache hits.
	Observer Observer

	circuit *Circuit
	values  map[string]uint16
	onPath  map[string]struct{}
	path    []string
}

// NewResolver creates a resolver with an empty resolution cache.
func NewResolver(c *Circuit) (*Resolver, error) {
	if c == nil {
		return nil, invalidf("nil circuit")
	}
	return &Resolver{
		circuit: c,
		values:  make(map[string]uint16, c.Len()),
		onPath:  make(map[string]struct{}),
	}, nil
}

// Resolve computes the value delivered to the target wire.
//
// Failure modes:
//   - The target or any transitively referenced wire has no definition:
//     the pass aborts with ErrUnknownWire.
//   - The reference chain revisits a wire already being evaluated:
//     the pass aborts with ErrWireCycle carrying the witness path.
//
// Resolve never mutates the circuit. On error the cache retains values for
// wires fully evaluated before the failure; they are still correct.
func (r *Resolver) Resolve(target string) (uint16, error) {
	return r.resolveWire(target)
}

func (r *Resolver) resolveWire(wire string) (uint16, error) {
	if v, ok := r.values[wire]; ok {
		if r.Observer != nil {
			r.Observer.WireCacheHit(wire, v)
		}
		return v, nil
	}

	gate, ok := r.circuit.Gate(wire)
	if !ok {
		return 0, unknownWiref(wire, "no gate feeds wire %q", wire)
	}

	if _, active := r.onPath[wire]; active {
		return 0, cycleError(r.cycleWitness(wire))
	}
	r.onPath[wire] = struct{}{}
	r.path = append(r.path, wire)

	v, err := r.evaluate(gate)

	delete(r.onPath, wire)
	r.path = r.path[:len(r.path)-1]
	if err != nil {
		return 0, err
	}

	r.values[wire] = v
	if r.Observer != nil {
		r.Observer.WireEvaluated(wire, gate, v)
	}
	return v, nil
}

// evaluate computes a single gate's output. All arithmetic is native uint16:
// NOT is the 16-bit complement and shifts truncate to 16 bits.
func (r *Resolver) evaluate(gate Gate) (uint16, error) {
	left, err := r.resolveOperand(gate.Left)
	if err != nil {
		return 0, err
	}

	switch gate.Kind {
	case GateValue:
		return left, nil
	case GateNot:
		return ^left, nil
	}

	right, err := r.resolveOperand(gate.Right)
	if err != nil {
		return 0, err
	}

	switch gate.Kind {
	case GateAnd:
		return left & right, nil
	case GateOr:
		return left | right, nil
	case GateLShift:
		return left << right, nil
	case GateRShift:
		return left >> right, nil
	default:
		return 0, invalidf("unknown gate kind %q", gate.Kind)
	}
}

// resolveOperand yields a literal directly with no cache interaction;
// references recurse through the memoized wire resolution.
func (r *Resolver) resolveOperand(op Operand) (uint16, error) {
	if !op.IsRef() {
		return op.Literal(), nil
	}
	return r.resolveWire(op.Wire())
}

// cycleWitness extracts the portion of the current evaluation path that
// forms the cycle, closed with a repeat of the revisited wire.
func (r *Resolver) cycleWitness(wire string) []string {
	start := 0
	for i, name := range r.path {
		if name == wire {
			start = i
			break
		}
	}
	witness := make([]string, 0, len(r.path)-start+1)
	witness = append(witness, r.path[start:]...)
	witness = append(witness, wire)
	return witness
}

// Resolve computes the value delivered to target using a single fresh
// resolution pass over c.
func Resolve(c *Circuit, target string) (uint16, error) {
	r, err := NewResolver(c)
	if err != nil {
		return 0, err
	}
	return r.Resolve(target)
}
