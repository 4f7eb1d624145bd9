// Package ir defines loopoly's tensor-program intermediate representation
// (spec.md §3): tensors, the expression and constraint algebras, iteration
// domains, statements, and the PrimFunc a caller hands to Compile.
//
// Every value here is immutable once constructed: transformations in the
// packages above ir (access, deps, scheduler, lower, cgen) always produce
// fresh values rather than mutating an ir.PrimFunc in place.
package ir

// ElemType is a tensor's element type. Integer is the default; Float
// exists so float constants can flow through the IR, but spec.md §4.1
// requires them to be rejected before they reach a polyhedral
// constraint.
type ElemType uint8

const (
	// Int is the default element type.
	Int ElemType = iota
	// Float marks a floating-point tensor. Shapes and loop bounds
	// derived from a Float tensor's extents are still integers; only
	// the stored values are float.
	Float
)

func (t ElemType) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}
