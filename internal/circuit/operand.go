package circuit

import "strconv"

// Operand is a single gate input: either a literal unsigned 16-bit value or
// a reference to another wire by name.
//
// The zero Operand is the literal 0.
type Operand struct {
	ref   string
	lit   uint16
	isRef bool
}

// Lit returns a literal operand carrying the value v.
func Lit(v uint16) Operand {
	return Operand{lit: v}
}

// Ref returns an operand referencing the wire with the given name.
func Ref(name string) Operand {
	return Operand{ref: name, isRef: true}
}

// IsRef reports whether the operand references another wire.
func (o Operand) IsRef() bool { return o.isRef }

// Literal returns the literal value. Valid only when IsRef is false.
func (o Operand) Literal() uint16 { return o.lit }

// Wire returns the referenced wire name. Valid only when IsRef is true.
func (o Operand) Wire() string { return o.ref }

// String renders the operand in wire-file syntax: the decimal value for a
// literal, the wire name for a reference.
//
// The rendering is part of circuit and query identity hashing; it must stay
// stable.
func (o Operand) String() string {
	if o.isRef {
		return o.ref
	}
	return strconv.FormatUint(uint64(o.lit), 10)
}
