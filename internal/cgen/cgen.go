// Package cgen implements spec.md §4.8–4.9: pretty-printing a lowered
// loop-nest AST (internal/lower's output) into a single well-formed C
// function. Rendering is purely structural — no further analysis, no
// optimization — the precedence-aware expression printer and the
// tensor-index linearizer are the only nontrivial logic here.
package cgen

import (
	"fmt"
	"strings"

	"loopoly/internal/ir"
	"loopoly/internal/perr"
)

const indentUnit = "    "

// Emit renders f's name, tensor parameters, and the lowered AST root
// into one C function definition.
func Emit(f *ir.PrimFunc, root *ir.AstNode) (string, error) {
	var sb strings.Builder
	sb.WriteString("void ")
	sb.WriteString(f.Name)
	sb.WriteString("(")
	sb.WriteString(paramList(f.Params))
	sb.WriteString(") {\n")
	if err := emitNode(&sb, root, 1); err != nil {
		return "", err
	}
	sb.WriteString("}\n")
	return sb.String(), nil
}

func paramList(params []*ir.Tensor) string {
	if len(params) == 0 {
		return "void"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s *%s", p.Elem.String(), p.Name)
	}
	return strings.Join(parts, ", ")
}

func indent(depth int) string { return strings.Repeat(indentUnit, depth) }

func emitNode(sb *strings.Builder, n *ir.AstNode, depth int) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case ir.NodeForLoop:
		lower, err := renderAst(n.Lower)
		if err != nil {
			return err
		}
		upper, err := renderAst(n.Upper)
		if err != nil {
			return err
		}
		iter := cIdent(n.Iterator)
		step := n.Step
		if step == 0 {
			step = 1
		}
		var advance string
		if step == 1 {
			advance = fmt.Sprintf("%s++", iter)
		} else {
			advance = fmt.Sprintf("%s += %d", iter, step)
		}
		fmt.Fprintf(sb, "%sfor (int %s = %s; %s <= %s; %s) {\n",
			indent(depth), iter, lower, iter, upper, advance)
		if err := emitNode(sb, n.Body, depth+1); err != nil {
			return err
		}
		fmt.Fprintf(sb, "%s}\n", indent(depth))
		return nil

	case ir.NodeGuard:
		cond, err := renderCond(n.Cond)
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "%sif (%s) {\n", indent(depth), cond)
		if err := emitNode(sb, n.Then, depth+1); err != nil {
			return err
		}
		fmt.Fprintf(sb, "%s}\n", indent(depth))
		return nil

	case ir.NodeBlock:
		for _, c := range n.Children {
			if err := emitNode(sb, c, depth); err != nil {
				return err
			}
		}
		return nil

	case ir.NodeAssign:
		return emitAssign(sb, n, depth)

	case ir.NodeReduceAssign:
		return emitReduceAssign(sb, n, depth)

	default:
		return perr.Malformed("cgen", "cannot emit an unlowered AST node")
	}
}

func emitAssign(sb *strings.Builder, n *ir.AstNode, depth int) error {
	target, err := linearize(n.Target)
	if err != nil {
		return err
	}
	value, err := renderAst(n.Value)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s = %s;", target, value)
	if n.AssignGuard == nil {
		fmt.Fprintf(sb, "%s%s\n", indent(depth), line)
		return nil
	}
	cond, err := renderCond(n.AssignGuard)
	if err != nil {
		return err
	}
	fmt.Fprintf(sb, "%sif (%s) {\n", indent(depth), cond)
	fmt.Fprintf(sb, "%s%s\n", indent(depth+1), line)
	fmt.Fprintf(sb, "%s}\n", indent(depth))
	return nil
}

// emitReduceAssign implements spec.md §4.9's ReduceStore lowering: an
// optional guarded init line, then the unconditional combine.
func emitReduceAssign(sb *strings.Builder, n *ir.AstNode, depth int) error {
	target, err := linearize(n.Target)
	if err != nil {
		return err
	}
	value, err := renderAst(n.Value)
	if err != nil {
		return err
	}
	if n.Init != nil {
		init, err := renderAst(n.Init)
		if err != nil {
			return err
		}
		if n.InitGuard == nil {
			fmt.Fprintf(sb, "%sif (1) %s = %s;\n", indent(depth), target, init)
		} else {
			cond, err := renderCond(n.InitGuard)
			if err != nil {
				return err
			}
			fmt.Fprintf(sb, "%sif (%s) %s = %s;\n", indent(depth), cond, target, init)
		}
	}
	switch n.ReduceOp {
	case ir.Sum:
		fmt.Fprintf(sb, "%s%s += %s;\n", indent(depth), target, value)
	case ir.Prod:
		fmt.Fprintf(sb, "%s%s *= %s;\n", indent(depth), target, value)
	case ir.RMax:
		fmt.Fprintf(sb, "%s%s = (%s > %s) ? %s : %s;\n", indent(depth), target, target, value, target, value)
	case ir.RMin:
		fmt.Fprintf(sb, "%s%s = (%s < %s) ? %s : %s;\n", indent(depth), target, target, value, target, value)
	default:
		return perr.Unsupported("cgen", "unknown reduce operator")
	}
	return nil
}

// linearize renders a tensor access per spec.md §4.9's row-major rule:
// rank 0 is bare, rank 1 is a single subscript, rank ≥2 left-folds
// "(acc) * d_k + i_k" across the remaining dimensions. Each index
// subexpression is rendered and parenthesized if it contains a space,
// the one deviation from ordinary precedence-driven parenthesization
// this specific fold requires.
func linearize(a ir.AstAccess) (string, error) {
	if len(a.Index) == 0 {
		return a.Tensor.Name, nil
	}
	idx := make([]string, len(a.Index))
	for i, e := range a.Index {
		s, err := renderAst(e)
		if err != nil {
			return "", err
		}
		if strings.Contains(s, " ") {
			s = "(" + s + ")"
		}
		idx[i] = s
	}
	if len(idx) == 1 {
		return fmt.Sprintf("%s[%s]", a.Tensor.Name, idx[0]), nil
	}
	if len(idx) != a.Tensor.Rank() {
		return "", perr.Malformed(a.Tensor.Name, "access index count does not match tensor rank")
	}
	acc := idx[0]
	for d := 1; d < len(idx); d++ {
		dim, err := renderExpr(a.Tensor.Shape[d])
		if err != nil {
			return "", err
		}
		acc = fmt.Sprintf("(%s) * %s + %s", acc, dim, idx[d])
	}
	return fmt.Sprintf("%s[%s]", a.Tensor.Name, acc), nil
}
