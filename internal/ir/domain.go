package ir

import "fmt"

// Domain is a Compute's iteration space: an ordered list of symbolic
// parameters, an ordered list of iterators, and a sequence of
// constraints interpreted as a conjunction (a Constraint element may
// itself be a Logical node, allowing disjunction within one slot).
//
// Invariant: every name referenced by Constraints is either an
// iterator of this domain or a listed parameter. Check verifies this.
type Domain struct {
	Params      []string
	Iterators   []Iterator
	Constraints []*Constraint
}

// IteratorNames returns the ordered iterator name list.
func (d *Domain) IteratorNames() []string {
	names := make([]string, len(d.Iterators))
	for i, it := range d.Iterators {
		names[i] = it.Name
	}
	return names
}

// ReduceIterators returns the subset of d's iterators with Kind ==
// Reduce, in domain order.
func (d *Domain) ReduceIterators() []Iterator {
	var out []Iterator
	for _, it := range d.Iterators {
		if it.Kind == Reduce {
			out = append(out, it)
		}
	}
	return out
}

// Check validates the name-scoping invariant: every Var referenced
// anywhere in Constraints names either an iterator or a parameter of d.
func (d *Domain) Check() error {
	known := make(map[string]bool, len(d.Iterators)+len(d.Params))
	for _, it := range d.Iterators {
		known[it.Name] = true
	}
	for _, p := range d.Params {
		known[p] = true
	}
	for _, c := range d.Constraints {
		if err := checkConstraintNames(c, known); err != nil {
			return err
		}
	}
	return nil
}

func checkConstraintNames(c *Constraint, known map[string]bool) error {
	if c == nil {
		return nil
	}
	switch c.Kind {
	case ConstraintCompare:
		if err := checkExprNames(c.Left, known); err != nil {
			return err
		}
		return checkExprNames(c.Right, known)
	case ConstraintLogical:
		if err := checkConstraintNames(c.LHS, known); err != nil {
			return err
		}
		return checkConstraintNames(c.RHS, known)
	default:
		return fmt.Errorf("unknown constraint kind %d", c.Kind)
	}
}

func checkExprNames(e *Expr, known map[string]bool) error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ExprVar:
		if !known[e.Name] {
			return fmt.Errorf("name %q is neither an iterator nor a parameter of its domain", e.Name)
		}
	case ExprIntLit, ExprFloatLit:
	case ExprBinary:
		if err := checkExprNames(e.Left, known); err != nil {
			return err
		}
		return checkExprNames(e.Right, known)
	case ExprUnary:
		return checkExprNames(e.Operand, known)
	case ExprCallExpr:
		for _, a := range e.Args {
			if err := checkExprNames(a, known); err != nil {
				return err
			}
		}
	case ExprLoad:
		for _, idx := range e.Index {
			if err := checkExprNames(idx, known); err != nil {
				return err
			}
		}
	}
	return nil
}
