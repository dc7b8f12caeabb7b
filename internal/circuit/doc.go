// Package circuit provides the domain model and evaluation engine for
// deterministic logic-circuit resolution.
//
// # Design Principles
//
// All structures in this package adhere to the following constraints:
//
//  1. The Circuit (wire definitions) is immutable once constructed.
//  2. All mutable evaluation state is confined to a single Resolver.
//  3. Resolution is a pure function of (Circuit, target wire): repeated
//     passes over the same circuit always produce the same value.
//
// # Core Types
//
// Operand: a literal 16-bit value or a reference to another wire.
// Gate: one operation feeding a wire (VALUE, AND, OR, LSHIFT, RSHIFT, NOT).
// Circuit: the complete, immutable mapping from wire names to gates.
// Resolver: one memoized evaluation pass over one circuit.
package circuit
