package islx

import (
	"fmt"
	"sort"

	"loopoly/internal/perr"
)

// LinExpr is an affine combination over named variables plus a
// constant: sum(coeff[v] * v) + const.
type LinExpr struct {
	Coeffs map[string]int64
	Const  int64
}

func zeroLin() LinExpr { return LinExpr{Coeffs: map[string]int64{}} }

func litLin(v int64) LinExpr { return LinExpr{Coeffs: map[string]int64{}, Const: v} }

func varLin(name string) LinExpr {
	return LinExpr{Coeffs: map[string]int64{name: 1}}
}

func (a LinExpr) clone() LinExpr {
	c := make(map[string]int64, len(a.Coeffs))
	for k, v := range a.Coeffs {
		c[k] = v
	}
	return LinExpr{Coeffs: c, Const: a.Const}
}

func (a LinExpr) add(b LinExpr) LinExpr {
	out := a.clone()
	for k, v := range b.Coeffs {
		out.Coeffs[k] += v
	}
	out.Const += b.Const
	return out
}

func (a LinExpr) neg() LinExpr {
	out := a.clone()
	for k, v := range out.Coeffs {
		out.Coeffs[k] = -v
	}
	out.Const = -out.Const
	return out
}

func (a LinExpr) sub(b LinExpr) LinExpr { return a.add(b.neg()) }

func (a LinExpr) scale(k int64) LinExpr {
	out := a.clone()
	for v := range out.Coeffs {
		out.Coeffs[v] *= k
	}
	out.Const *= k
	return out
}

// coeffOf is 0 for variables absent from the map.
func (a LinExpr) coeffOf(name string) int64 { return a.Coeffs[name] }

// vars returns the (sorted, deterministic) set of variable names with
// a nonzero coefficient.
func (a LinExpr) vars() []string {
	out := make([]string, 0, len(a.Coeffs))
	for k, v := range a.Coeffs {
		if v != 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// builder accumulates the linear constraints produced while
// linearizing a formula, plus any existential auxiliary variables
// introduced for floor/mod subexpressions.
type builder struct {
	exists    []string
	extraEq   []LinExpr
	modBounds []modBound
	n         int
}

func (b *builder) freshExist() string {
	b.n++
	return fmt.Sprintf("__q%d", b.n)
}

// linearize converts a parsed expression tree into a LinExpr,
// introducing an existential quotient variable for every floor/mod
// subexpression it encounters. max/min are rejected with
// PolyhedralFailure: the engine supports them in affine.Expr's output
// vocabulary for completeness, but not inside polyhedral constraint
// position, a narrower-than-isl limitation.
func (b *builder) linearize(e *exprNode) (LinExpr, error) {
	switch e.op {
	case "int":
		return litLin(e.ival), nil
	case "var":
		return varLin(e.name), nil
	case "neg":
		inner, err := b.linearize(e.left)
		if err != nil {
			return LinExpr{}, err
		}
		return inner.neg(), nil
	case "+":
		l, err := b.linearize(e.left)
		if err != nil {
			return LinExpr{}, err
		}
		r, err := b.linearize(e.right)
		if err != nil {
			return LinExpr{}, err
		}
		return l.add(r), nil
	case "-":
		l, err := b.linearize(e.left)
		if err != nil {
			return LinExpr{}, err
		}
		r, err := b.linearize(e.right)
		if err != nil {
			return LinExpr{}, err
		}
		return l.sub(r), nil
	case "*":
		l, err := b.linearize(e.left)
		if err != nil {
			return LinExpr{}, err
		}
		r, err := b.linearize(e.right)
		if err != nil {
			return LinExpr{}, err
		}
		return b.multiply(l, r)
	case "/":
		return b.floorDiv(e.left, e.right)
	case "%":
		return b.mod(e.left, e.right)
	case "max", "min":
		return LinExpr{}, perr.Polyhedral(e.op+"(...)", fmt.Errorf("max/min is not supported inside a polyhedral constraint"))
	default:
		return LinExpr{}, perr.Polyhedral(e.op, fmt.Errorf("unsupported operator in affine position"))
	}
}

// multiply only accepts one side being a pure constant: genuine
// affine arithmetic never multiplies two variables together.
func (b *builder) multiply(l, r LinExpr) (LinExpr, error) {
	if len(l.vars()) == 0 {
		return r.scale(l.Const), nil
	}
	if len(r.vars()) == 0 {
		return l.scale(r.Const), nil
	}
	return LinExpr{}, perr.Polyhedral("*", fmt.Errorf("non-affine multiplication of two variable expressions"))
}

// divMod is the shared machinery behind floor(a/d) and a%d: both
// rest on the same existential pair q, r satisfying a == q*d + r,
// 0 <= r < d (d a positive integer literal, the only divisor shape
// internal/affine ever emits). floorDiv returns q, mod returns r.
func (b *builder) divMod(numNode, denomNode *exprNode) (q, r string, err error) {
	num, err := b.linearize(numNode)
	if err != nil {
		return "", "", err
	}
	denom, err := b.linearize(denomNode)
	if err != nil {
		return "", "", err
	}
	if len(denom.vars()) != 0 || denom.Const <= 0 {
		return "", "", perr.Polyhedral("floor(.. / ..)", fmt.Errorf("divisor must be a positive integer constant"))
	}
	q = b.freshExist()
	r = b.freshExist()
	b.exists = append(b.exists, q, r)
	b.extraEq = append(b.extraEq, num.sub(varLin(q).scale(denom.Const)).sub(varLin(r)))
	b.modBounds = append(b.modBounds, modBound{rvar: r, modulus: denom.Const})
	return q, r, nil
}

func (b *builder) floorDiv(numNode, denomNode *exprNode) (LinExpr, error) {
	q, _, err := b.divMod(numNode, denomNode)
	if err != nil {
		return LinExpr{}, err
	}
	return varLin(q), nil
}

func (b *builder) mod(numNode, denomNode *exprNode) (LinExpr, error) {
	_, r, err := b.divMod(numNode, denomNode)
	if err != nil {
		return LinExpr{}, err
	}
	return varLin(r), nil
}

type modBound struct {
	rvar    string
	modulus int64
}
