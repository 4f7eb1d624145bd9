// Package lower implements spec.md §4.7's AST Lowerer: it walks the
// polyhedral AST internal/islx generates and replaces every UserStmt
// leaf with the originating Compute's body, substituted at that leaf's
// iteration point. For/Block/Guard nodes pass through unchanged except
// for the recursive substitution of their descendants; If conversion
// turns a Store's optional StoreGuard into the same AstCond algebra a
// polyhedral residual guard uses, so internal/cgen never needs to know
// which kind of guard it is rendering.
package lower

import (
	"loopoly/internal/ir"
	"loopoly/internal/perr"
)

type lowerer struct {
	computes map[string]*ir.Compute
}

// Lower rewrites root (as produced by islx.Generate for f) into a tree
// with every NodeUserStmt replaced by a NodeAssign or NodeReduceAssign.
func Lower(f *ir.PrimFunc, root *ir.AstNode) (*ir.AstNode, error) {
	l := &lowerer{computes: make(map[string]*ir.Compute, len(f.Computes))}
	for _, c := range f.Computes {
		l.computes[c.Name] = c
	}
	return l.lowerNode(root, map[string]*ir.AstExpr{})
}

// lowerNode walks the polyhedral AST, threading bounds — the lower
// bound expression of every ForLoop currently enclosing this point,
// keyed by loop iterator name — down to each leaf, since a
// ReduceStore's init-guard condition is "this dimension's iterator
// equals its own lower bound."
func (l *lowerer) lowerNode(n *ir.AstNode, bounds map[string]*ir.AstExpr) (*ir.AstNode, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case ir.NodeForLoop:
		inner := make(map[string]*ir.AstExpr, len(bounds)+1)
		for k, v := range bounds {
			inner[k] = v
		}
		inner[n.Iterator] = n.Lower
		body, err := l.lowerNode(n.Body, inner)
		if err != nil {
			return nil, err
		}
		return ir.SteppedForLoopNode(n.Iterator, n.Lower, n.Upper, n.Step, body), nil
	case ir.NodeGuard:
		then, err := l.lowerNode(n.Then, bounds)
		if err != nil {
			return nil, err
		}
		return ir.GuardNode(n.Cond, then), nil
	case ir.NodeBlock:
		children := make([]*ir.AstNode, len(n.Children))
		for i, c := range n.Children {
			lc, err := l.lowerNode(c, bounds)
			if err != nil {
				return nil, err
			}
			children[i] = lc
		}
		return ir.BlockNode(children...), nil
	case ir.NodeUserStmt:
		return l.lowerUserStmt(n, bounds)
	default:
		return nil, perr.Malformed("lower", "polyhedral AST node is already lowered or of an unknown kind")
	}
}

func (l *lowerer) lowerUserStmt(n *ir.AstNode, bounds map[string]*ir.AstExpr) (*ir.AstNode, error) {
	c, ok := l.computes[n.ComputeName]
	if !ok {
		return nil, perr.Malformed(n.ComputeName, "polyhedral AST references a Compute not present in this PrimFunc")
	}
	return l.lowerStmt(c, c.Body, n.Point, bounds)
}

func (l *lowerer) lowerStmt(c *ir.Compute, s *ir.Stmt, env map[string]*ir.AstExpr, bounds map[string]*ir.AstExpr) (*ir.AstNode, error) {
	if s == nil {
		return ir.BlockNode(), nil
	}
	switch s.Kind {
	case ir.StmtBlock:
		children := make([]*ir.AstNode, len(s.Stmts))
		for i, child := range s.Stmts {
			lc, err := l.lowerStmt(c, child, env, bounds)
			if err != nil {
				return nil, err
			}
			children[i] = lc
		}
		return ir.BlockNode(children...), nil

	case ir.StmtStore:
		target, err := lowerAccess(s.StoreTarget, env)
		if err != nil {
			return nil, err
		}
		value, err := lowerExpr(s.StoreValue, env)
		if err != nil {
			return nil, err
		}
		var guard *ir.AstCond
		if s.StoreGuard != nil {
			guard, err = lowerConstraint(s.StoreGuard, env)
			if err != nil {
				return nil, err
			}
		}
		return ir.AssignNode(target, value, guard), nil

	case ir.StmtReduceStore:
		target, err := lowerAccess(s.ReduceTarget, env)
		if err != nil {
			return nil, err
		}
		value, err := lowerExpr(s.ReduceValue, env)
		if err != nil {
			return nil, err
		}
		var init *ir.AstExpr
		var initGuard *ir.AstCond
		if s.ReduceInit != nil {
			init, err = lowerExpr(s.ReduceInit, env)
			if err != nil {
				return nil, err
			}
			initGuard = buildInitGuard(c, env, bounds)
		}
		return ir.ReduceAssignNode(s.ReduceOp, target, value, init, initGuard), nil

	default:
		return nil, perr.Malformed(c.Name, "Compute body contains an unknown Stmt kind")
	}
}

// buildInitGuard conjoins, over every reduce iterator of c's domain,
// "this leaf's point for that iterator equals the enclosing loop's
// lower bound" — true exactly at the first point a reduction visits,
// the condition under which a ReduceStore's optional init fires.
// A reduce iterator whose time dimension isn't wrapped by a tracked
// ForLoop (never the case for a schedule internal/dsbuild built, but
// possible after a degenerate custom schedule) is skipped rather than
// failing lowering outright.
func buildInitGuard(c *ir.Compute, env, bounds map[string]*ir.AstExpr) *ir.AstCond {
	var cond *ir.AstCond
	for _, it := range c.Domain.ReduceIterators() {
		point, ok := env[it.Name]
		if !ok || point.Kind != ir.AstId {
			continue
		}
		lower, ok := bounds[point.Name]
		if !ok {
			continue
		}
		leaf := ir.CmpCond(ir.EQ, point, lower)
		if cond == nil {
			cond = leaf
		} else {
			cond = ir.AndCond(cond, leaf)
		}
	}
	return cond
}

func lowerAccess(a ir.Access, env map[string]*ir.AstExpr) (ir.AstAccess, error) {
	idx := make([]*ir.AstExpr, len(a.Index))
	for i, e := range a.Index {
		le, err := lowerExpr(e, env)
		if err != nil {
			return ir.AstAccess{}, err
		}
		idx[i] = le
	}
	return ir.AstAccess{Tensor: a.Tensor, Index: idx}, nil
}

// lowerExpr is spec.md §4.7's operator table: every ir.Expr case maps
// onto the identically-shaped ir.AstExpr case, with ExprVar resolved
// against env (an iterator becomes its Point value; anything else — a
// symbolic shape parameter — passes through as an identifier).
func lowerExpr(e *ir.Expr, env map[string]*ir.AstExpr) (*ir.AstExpr, error) {
	if e == nil {
		return nil, perr.Malformed("lower", "nil expression in Compute body")
	}
	switch e.Kind {
	case ir.ExprVar:
		if v, ok := env[e.Name]; ok {
			return v, nil
		}
		return ir.NewAstId(e.Name), nil
	case ir.ExprIntLit:
		return ir.NewAstVal(e.Int), nil
	case ir.ExprFloatLit:
		return ir.NewAstFloat(e.Float), nil
	case ir.ExprBinary:
		l, err := lowerExpr(e.Left, env)
		if err != nil {
			return nil, err
		}
		r, err := lowerExpr(e.Right, env)
		if err != nil {
			return nil, err
		}
		return ir.NewAstBin(e.BinOp, l, r), nil
	case ir.ExprUnary:
		operand, err := lowerExpr(e.Operand, env)
		if err != nil {
			return nil, err
		}
		return ir.NewAstUn(e.UnOp, operand), nil
	case ir.ExprCallExpr:
		args := make([]*ir.AstExpr, len(e.Args))
		for i, a := range e.Args {
			la, err := lowerExpr(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = la
		}
		return ir.NewAstCall(e.Callee, args...), nil
	case ir.ExprLoad:
		access, err := lowerAccess(ir.Access{Tensor: e.Tensor, Index: e.Index}, env)
		if err != nil {
			return nil, err
		}
		return ir.NewAstLoad(access), nil
	default:
		return nil, perr.Malformed("lower", "unknown Expr kind")
	}
}

// lowerConstraint turns a Domain/StoreGuard Constraint into the same
// AstCond shape a polyhedral residual guard renders as, substituting
// iterators through env exactly as lowerExpr does.
func lowerConstraint(c *ir.Constraint, env map[string]*ir.AstExpr) (*ir.AstCond, error) {
	if c == nil {
		return nil, nil
	}
	switch c.Kind {
	case ir.ConstraintCompare:
		l, err := lowerExpr(c.Left, env)
		if err != nil {
			return nil, err
		}
		r, err := lowerExpr(c.Right, env)
		if err != nil {
			return nil, err
		}
		return ir.CmpCond(c.CompareOp, l, r), nil
	case ir.ConstraintLogical:
		l, err := lowerConstraint(c.LHS, env)
		if err != nil {
			return nil, err
		}
		r, err := lowerConstraint(c.RHS, env)
		if err != nil {
			return nil, err
		}
		return ir.LogicCond(c.LogicalOp, l, r), nil
	default:
		return nil, perr.Malformed("lower", "unknown Constraint kind")
	}
}
