package ir

// ContainsLoad reports whether e contains a Load subterm anywhere in
// its tree — the data-dependent-control check spec.md §4.1 requires
// before an expression may be serialized into a constraint.
func ContainsLoad(e *Expr) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ExprLoad:
		return true
	case ExprBinary:
		return ContainsLoad(e.Left) || ContainsLoad(e.Right)
	case ExprUnary:
		return ContainsLoad(e.Operand)
	case ExprCallExpr:
		for _, a := range e.Args {
			if ContainsLoad(a) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ContainsFloat reports whether e contains a float literal anywhere in
// its tree (spec.md §4.1: floats must not leak into polyhedral text).
func ContainsFloat(e *Expr) bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ExprFloatLit:
		return true
	case ExprBinary:
		return ContainsFloat(e.Left) || ContainsFloat(e.Right)
	case ExprUnary:
		return ContainsFloat(e.Operand)
	case ExprCallExpr:
		for _, a := range e.Args {
			if ContainsFloat(a) {
				return true
			}
		}
		return false
	case ExprLoad:
		for _, idx := range e.Index {
			if ContainsFloat(idx) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
