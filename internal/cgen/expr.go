package cgen

import (
	"fmt"
	"strings"

	"loopoly/internal/ir"
	"loopoly/internal/perr"
)

// cIdent renames a shared time dimension ("time#0", "time#1", ...) —
// internal/dsbuild and internal/scheduler's namespacing scheme, never
// a valid C identifier on its own — into the "c0", "c1", ... spelling
// isl's own AST printer uses for the same role. Any other identifier
// (a tensor shape parameter, a custom WithSchedule's own iterator
// name) passes through unchanged.
func cIdent(name string) string {
	if rest, ok := strings.CutPrefix(name, "time#"); ok {
		return "c" + rest
	}
	return name
}

// binPrec implements spec.md §4.9's precedence table: Add/Sub = 1,
// Mul/Div = 2. FloorDiv and Mod render as ordinary C "/" and "%" at
// Mul/Div's precedence; BMax/BMin never appear as infix operators (see
// below), so they carry no entry here.
func binPrec(op ir.BinOp) int {
	switch op {
	case ir.Add, ir.Sub:
		return 1
	case ir.Mul, ir.Div, ir.FloorDiv, ir.Mod:
		return 2
	default:
		return 0
	}
}

func binSymbol(op ir.BinOp) (string, bool) {
	switch op {
	case ir.Add:
		return "+", true
	case ir.Sub:
		return "-", true
	case ir.Mul:
		return "*", true
	case ir.Div, ir.FloorDiv:
		return "/", true
	case ir.Mod:
		return "%", true
	default:
		return "", false
	}
}

// needsRightParen is spec.md §4.9's literal rule: the right operand of
// a binary expression is parenthesized when its own precedence is ≤
// the parent's and the parent is Sub or Div, or the parent is Mul with
// a Div child.
func needsRightParen(parent, child ir.BinOp) bool {
	if binPrec(child) > binPrec(parent) {
		return false
	}
	return parent == ir.Sub || parent == ir.Div || (parent == ir.Mul && child == ir.Div)
}

func needsLeftParen(parent, child ir.BinOp) bool {
	return binPrec(child) < binPrec(parent)
}

// renderAst renders a lowered expression, applying binPrec's
// parenthesization rule to nested AstBin operands and a fully
// self-parenthesized ternary for BMax/BMin (C has no integer min/max
// operator).
func renderAst(e *ir.AstExpr) (string, error) {
	if e == nil {
		return "", perr.Malformed("cgen", "nil expression")
	}
	switch e.Kind {
	case ir.AstId:
		return cIdent(e.Name), nil
	case ir.AstVal:
		return fmt.Sprintf("%d", e.Val), nil
	case ir.AstFloat:
		return fmt.Sprintf("%g", e.FloatVal), nil
	case ir.AstUn:
		operand, err := renderAst(e.Operand)
		if err != nil {
			return "", err
		}
		if e.Operand.Kind == ir.AstBin {
			operand = "(" + operand + ")"
		}
		switch e.UnOp {
		case ir.Neg:
			return "-" + operand, nil
		case ir.Not:
			return "!" + operand, nil
		default:
			return "", perr.Unsupported("cgen", "unknown unary operator")
		}
	case ir.AstCall:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			s, err := renderAst(a)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		return fmt.Sprintf("%s(%s)", e.Callee, joinComma(args)), nil
	case ir.AstLoad:
		return linearize(*e.Load)
	case ir.AstBin:
		return renderBin(e)
	default:
		return "", perr.Unsupported("cgen", "unknown AstExpr kind")
	}
}

func renderBin(e *ir.AstExpr) (string, error) {
	if e.BinOp == ir.BMax || e.BinOp == ir.BMin {
		l, err := renderAst(e.Left)
		if err != nil {
			return "", err
		}
		r, err := renderAst(e.Right)
		if err != nil {
			return "", err
		}
		op := ">"
		if e.BinOp == ir.BMin {
			op = "<"
		}
		return fmt.Sprintf("(%s %s %s ? %s : %s)", l, op, r, l, r), nil
	}

	sym, ok := binSymbol(e.BinOp)
	if !ok {
		return "", perr.Unsupported("cgen", "unknown binary operator")
	}
	l, err := renderAst(e.Left)
	if err != nil {
		return "", err
	}
	if e.Left.Kind == ir.AstBin && needsLeftParen(e.BinOp, e.Left.BinOp) {
		l = "(" + l + ")"
	}
	r, err := renderAst(e.Right)
	if err != nil {
		return "", err
	}
	if e.Right.Kind == ir.AstBin && needsRightParen(e.BinOp, e.Right.BinOp) {
		r = "(" + r + ")"
	}
	return fmt.Sprintf("%s %s %s", l, sym, r), nil
}

// renderExpr renders a pre-lowering ir.Expr — used only for a tensor's
// shape extents, which are carried verbatim rather than through
// internal/lower's iterator substitution (spec.md §9's "shape extents
// may be symbolic" note).
func renderExpr(e *ir.Expr) (string, error) {
	if e == nil {
		return "", perr.Malformed("cgen", "nil shape extent expression")
	}
	switch e.Kind {
	case ir.ExprVar:
		return e.Name, nil
	case ir.ExprIntLit:
		return fmt.Sprintf("%d", e.Int), nil
	case ir.ExprFloatLit:
		return fmt.Sprintf("%g", e.Float), nil
	case ir.ExprUnary:
		operand, err := renderExpr(e.Operand)
		if err != nil {
			return "", err
		}
		if e.Operand.Kind == ir.ExprBinary {
			operand = "(" + operand + ")"
		}
		if e.UnOp == ir.Not {
			return "!" + operand, nil
		}
		return "-" + operand, nil
	case ir.ExprBinary:
		sym, ok := binSymbol(e.BinOp)
		if !ok {
			return "", perr.Unsupported("cgen", "unknown binary operator in shape extent")
		}
		l, err := renderExpr(e.Left)
		if err != nil {
			return "", err
		}
		if e.Left.Kind == ir.ExprBinary && needsLeftParen(e.BinOp, e.Left.BinOp) {
			l = "(" + l + ")"
		}
		r, err := renderExpr(e.Right)
		if err != nil {
			return "", err
		}
		if e.Right.Kind == ir.ExprBinary && needsRightParen(e.BinOp, e.Right.BinOp) {
			r = "(" + r + ")"
		}
		return fmt.Sprintf("%s %s %s", l, sym, r), nil
	default:
		return "", perr.Unsupported("cgen", "tensor shape extent must be a literal, variable, or arithmetic expression")
	}
}

// renderCond renders a guard condition, parenthesizing a logical
// subcondition whose connective differs from its parent's.
func renderCond(c *ir.AstCond) (string, error) {
	if c == nil {
		return "1", nil
	}
	if c.IsLogical() {
		l, err := renderCondOperand(c.LHS, c.LogicalOp)
		if err != nil {
			return "", err
		}
		r, err := renderCondOperand(c.RHS, c.LogicalOp)
		if err != nil {
			return "", err
		}
		sym := "&&"
		if c.LogicalOp == ir.Or {
			sym = "||"
		}
		return fmt.Sprintf("%s %s %s", l, sym, r), nil
	}
	l, err := renderAst(c.Left)
	if err != nil {
		return "", err
	}
	r, err := renderAst(c.Right)
	if err != nil {
		return "", err
	}
	sym, err := compareSymbol(c.Op)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", l, sym, r), nil
}

func renderCondOperand(c *ir.AstCond, parent ir.LogicalOp) (string, error) {
	s, err := renderCond(c)
	if err != nil {
		return "", err
	}
	if c.IsLogical() && c.LogicalOp != parent {
		s = "(" + s + ")"
	}
	return s, nil
}

func compareSymbol(op ir.CompareOp) (string, error) {
	switch op {
	case ir.LE:
		return "<=", nil
	case ir.LT:
		return "<", nil
	case ir.GE:
		return ">=", nil
	case ir.GT:
		return ">", nil
	case ir.EQ:
		return "==", nil
	case ir.NE:
		return "!=", nil
	default:
		return "", perr.Unsupported("cgen", "unknown comparison operator")
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
