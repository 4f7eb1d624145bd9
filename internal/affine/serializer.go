// Package affine renders loopoly's expression and constraint algebra
// into the textual set/map syntax the polyhedral engine parses
// (spec.md §4.1).
package affine

import (
	"fmt"
	"strconv"
	"strings"

	"loopoly/internal/ir"
	"loopoly/internal/perr"
)

// Expr renders an expression into its affine textual form. It returns
// an Affinity-kind *perr.Error if e contains a Load (data-dependent
// control) or a float literal — callers in internal/access catch this
// and drop the access pair rather than propagate it.
func Expr(e *ir.Expr) (string, error) {
	if e == nil {
		return "", perr.AffinityViolation("nil expression")
	}
	switch e.Kind {
	case ir.ExprIntLit:
		return strconv.FormatInt(e.Int, 10), nil
	case ir.ExprFloatLit:
		return "", perr.AffinityViolation("float literal in affine position")
	case ir.ExprVar:
		return e.Name, nil
	case ir.ExprLoad:
		return "", perr.AffinityViolation("load expression in affine position")
	case ir.ExprUnary:
		if e.UnOp != ir.Neg {
			return "", perr.AffinityViolation(fmt.Sprintf("unsupported unary operator %s in affine position", e.UnOp))
		}
		operand, err := Expr(e.Operand)
		if err != nil {
			return "", err
		}
		return "-" + operand, nil
	case ir.ExprBinary:
		return binaryExpr(e)
	default:
		return "", perr.AffinityViolation(fmt.Sprintf("unsupported expression kind %d in affine position", e.Kind))
	}
}

func binaryExpr(e *ir.Expr) (string, error) {
	lhs, err := Expr(e.Left)
	if err != nil {
		return "", err
	}
	rhs, err := Expr(e.Right)
	if err != nil {
		return "", err
	}
	switch e.BinOp {
	case ir.Add:
		return fmt.Sprintf("(%s + %s)", lhs, rhs), nil
	case ir.Sub:
		return fmt.Sprintf("(%s - %s)", lhs, rhs), nil
	case ir.Mul:
		return fmt.Sprintf("(%s * %s)", lhs, rhs), nil
	case ir.Div, ir.FloorDiv:
		return fmt.Sprintf("floor(%s / %s)", lhs, rhs), nil
	case ir.Mod:
		return fmt.Sprintf("(%s %% %s)", lhs, rhs), nil
	case ir.BMax:
		return fmt.Sprintf("max(%s, %s)", lhs, rhs), nil
	case ir.BMin:
		return fmt.Sprintf("min(%s, %s)", lhs, rhs), nil
	default:
		return "", perr.AffinityViolation(fmt.Sprintf("unsupported binary operator %s in affine position", e.BinOp))
	}
}

var compareSymbols = map[ir.CompareOp]string{
	ir.LT: "<",
	ir.LE: "<=",
	ir.GT: ">",
	ir.GE: ">=",
	ir.EQ: "=",
	ir.NE: "!=",
}

// Constraint renders a constraint into its affine textual form.
func Constraint(c *ir.Constraint) (string, error) {
	if c == nil {
		return "", perr.AffinityViolation("nil constraint")
	}
	switch c.Kind {
	case ir.ConstraintCompare:
		lhs, err := Expr(c.Left)
		if err != nil {
			return "", err
		}
		rhs, err := Expr(c.Right)
		if err != nil {
			return "", err
		}
		sym, ok := compareSymbols[c.CompareOp]
		if !ok {
			return "", perr.AffinityViolation(fmt.Sprintf("unsupported compare operator %s", c.CompareOp))
		}
		return fmt.Sprintf("%s %s %s", lhs, sym, rhs), nil
	case ir.ConstraintLogical:
		lhs, err := Constraint(c.LHS)
		if err != nil {
			return "", err
		}
		rhs, err := Constraint(c.RHS)
		if err != nil {
			return "", err
		}
		switch c.LogicalOp {
		case ir.And:
			return fmt.Sprintf("(%s and %s)", lhs, rhs), nil
		case ir.Or:
			return fmt.Sprintf("(%s or %s)", lhs, rhs), nil
		default:
			return "", perr.AffinityViolation(fmt.Sprintf("unsupported logical operator %s", c.LogicalOp))
		}
	default:
		return "", perr.AffinityViolation(fmt.Sprintf("unsupported constraint kind %d", c.Kind))
	}
}

// Header renders a Compute's (params, tuple, constraints) triple for
// composition into a polyhedral set/map literal.
func Header(params []string, tupleName string, iterNames []string, constraints []*ir.Constraint) (paramsStr, tuple, constraintsStr string, err error) {
	if len(params) == 0 {
		paramsStr = "[]"
	} else {
		paramsStr = "[" + strings.Join(params, ",") + "]"
	}
	tuple = tupleName + "[" + strings.Join(iterNames, ",") + "]"

	conj := ir.AndAll(constraints...)
	if conj == nil {
		return paramsStr, tuple, "1 = 1", nil
	}
	rendered, err := Constraint(conj)
	if err != nil {
		return "", "", "", err
	}
	return paramsStr, tuple, rendered, nil
}
