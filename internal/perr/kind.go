// Package perr implements loopoly's error kinds (spec.md §4.10/§7).
package perr

// Kind enumerates the error kinds a compile invocation can report.
type Kind uint8

const (
	// MalformedIR marks a missing or duplicate name, wrong arity, or a
	// non-literal where a literal is required.
	MalformedIR Kind = iota
	// UnsupportedConstruct marks an operator, expression, or AST node
	// the core does not handle.
	UnsupportedConstruct
	// Affinity marks a non-affine index or predicate. Never returned
	// from Compile directly: callers inside the access extractor
	// recover from it by dropping the access pair.
	Affinity
	// PolyhedralFailure wraps an underlying polyhedral-engine error
	// together with the failing set/map literal.
	PolyhedralFailure
	// IllegalTiling marks a tile specification that violates the
	// dependence-sign legality test.
	IllegalTiling
	// FusionFailure marks the absence of any legal single-nest fusion.
	FusionFailure
)

func (k Kind) String() string {
	switch k {
	case MalformedIR:
		return "MalformedIR"
	case UnsupportedConstruct:
		return "UnsupportedConstruct"
	case Affinity:
		return "Affinity"
	case PolyhedralFailure:
		return "PolyhedralFailure"
	case IllegalTiling:
		return "IllegalTiling"
	case FusionFailure:
		return "FusionFailure"
	default:
		return "Unknown"
	}
}
