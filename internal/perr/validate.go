package perr

import (
	"errors"
	"fmt"

	"loopoly/internal/ir"
)

// Validate runs the MalformedIR checks spec.md §4.10 lists as a
// pre-flight convenience separate from Compile: duplicate Compute or
// tensor names (f.Check already covers these, but Validate re-derives
// them as *Error rather than a bare fmt.Errorf so callers can branch
// on Kind), rank mismatches between an Access and its Tensor, and
// dangling parameter references in shape extents. Every independent
// check runs even after an earlier one fails, aggregated with
// errors.Join, matching the teacher's internal/mir.Validate shape;
// Compile itself never aggregates (spec.md §7).
func Validate(f *ir.PrimFunc) error {
	if f == nil {
		return New(MalformedIR, "nil PrimFunc")
	}
	var errs []error
	errs = append(errs, validateNames(f)...)
	errs = append(errs, validateShapes(f)...)
	errs = append(errs, validateAccessRanks(f)...)
	return errors.Join(errs...)
}

func validateNames(f *ir.PrimFunc) []error {
	var errs []error
	seenParams := make(map[string]bool, len(f.Params))
	for _, p := range f.Params {
		if p.Name == "" {
			errs = append(errs, Malformed(f.Name, "tensor parameter has no name"))
			continue
		}
		if seenParams[p.Name] {
			errs = append(errs, Malformed(p.Name, "duplicate tensor parameter name"))
		}
		seenParams[p.Name] = true
	}
	seenComputes := make(map[string]bool, len(f.Computes))
	for _, c := range f.Computes {
		if c.Name == "" {
			errs = append(errs, Malformed(f.Name, "compute has no name"))
			continue
		}
		if seenComputes[c.Name] {
			errs = append(errs, Malformed(c.Name, "duplicate compute name"))
		}
		seenComputes[c.Name] = true
	}
	return errs
}

// validateShapes rejects a tensor shape extent referencing a name that
// is neither an integer literal nor one of f's own symbolic domain
// parameters — a dangling parameter reference (spec.md §4.10).
func validateShapes(f *ir.PrimFunc) []error {
	known := map[string]bool{}
	for _, c := range f.Computes {
		for _, p := range c.Domain.Params {
			known[p] = true
		}
	}
	var errs []error
	for _, p := range f.Params {
		for i, dim := range p.Shape {
			if err := checkShapeExpr(p.Name, i, dim, known); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func checkShapeExpr(tensor string, dim int, e *ir.Expr, known map[string]bool) error {
	if e == nil {
		return Malformed(tensor, fmt.Sprintf("shape dimension %d is nil", dim))
	}
	switch e.Kind {
	case ir.ExprVar:
		if !known[e.Name] {
			return Malformed(tensor, fmt.Sprintf("shape dimension %d references unknown parameter %q", dim, e.Name))
		}
	case ir.ExprIntLit:
	case ir.ExprBinary:
		if err := checkShapeExpr(tensor, dim, e.Left, known); err != nil {
			return err
		}
		return checkShapeExpr(tensor, dim, e.Right, known)
	case ir.ExprUnary:
		return checkShapeExpr(tensor, dim, e.Operand, known)
	default:
		return Unsupported(tensor, fmt.Sprintf("shape dimension %d must be an integer literal, parameter, or arithmetic expression", dim))
	}
	return nil
}

// validateAccessRanks walks every Access in every Compute's body and
// reports a rank mismatch between the access's index count and its
// tensor's declared shape rank.
func validateAccessRanks(f *ir.PrimFunc) []error {
	var errs []error
	for _, c := range f.Computes {
		walkStmt(c.Body, func(a ir.Access) {
			if len(a.Index) != a.Tensor.Rank() {
				errs = append(errs, Malformed(a.Tensor.Name,
					fmt.Sprintf("compute %q indexes with %d dimensions but the tensor has rank %d", c.Name, len(a.Index), a.Tensor.Rank())))
			}
		})
	}
	return errs
}

func walkStmt(s *ir.Stmt, visit func(ir.Access)) {
	if s == nil {
		return
	}
	switch s.Kind {
	case ir.StmtBlock:
		for _, child := range s.Stmts {
			walkStmt(child, visit)
		}
	case ir.StmtStore:
		visit(s.StoreTarget)
		walkExpr(s.StoreValue, visit)
	case ir.StmtReduceStore:
		visit(s.ReduceTarget)
		walkExpr(s.ReduceValue, visit)
		walkExpr(s.ReduceInit, visit)
	}
}

func walkExpr(e *ir.Expr, visit func(ir.Access)) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ir.ExprBinary:
		walkExpr(e.Left, visit)
		walkExpr(e.Right, visit)
	case ir.ExprUnary:
		walkExpr(e.Operand, visit)
	case ir.ExprCallExpr:
		for _, a := range e.Args {
			walkExpr(a, visit)
		}
	case ir.ExprLoad:
		visit(ir.Access{Tensor: e.Tensor, Index: e.Index})
		for _, idx := range e.Index {
			walkExpr(idx, visit)
		}
	}
}
