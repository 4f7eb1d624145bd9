// Package access extracts the read and write access relations a
// Compute's body implies (spec.md §4.3): each Access becomes a
// polyhedral map from the statement's iteration domain to the
// accessed tensor's index space, silently dropped when its index
// expressions aren't affine.
package access

import (
	"fmt"
	"strings"

	"loopoly/internal/affine"
	"loopoly/internal/dsbuild"
	"loopoly/internal/ir"
	"loopoly/internal/islx"
	"loopoly/internal/perr"
)

// Ref is one extracted access: which Compute it belongs to, which
// tensor it touches, whether it's a write, and the polyhedral map from
// that Compute's (namespaced, domain-restricted) iteration space to
// the tensor's "tensorName#k" index space.
type Ref struct {
	Compute string
	Tensor  string
	Write   bool
	Map     *islx.BasicMap
}

// Extract walks every Compute in f and returns every affine access it
// performs. A ReduceStore's target is recorded twice — once as a read
// (the self-read spec.md §3 calls out: the prior accumulator value
// feeds the combination) and once as a write — and an access whose
// index expressions are non-affine (contain a Load or a float) is
// dropped rather than failing the whole extraction, per spec.md §4.3.
func Extract(f *ir.PrimFunc) ([]Ref, error) {
	var out []Ref
	for _, c := range f.Computes {
		dom, err := dsbuild.BuildDomain(c)
		if err != nil {
			return nil, err
		}
		var walk func(s *ir.Stmt)
		walk = func(s *ir.Stmt) {
			if s == nil {
				return
			}
			switch s.Kind {
			case ir.StmtStore:
				addRef(&out, c, dom, s.StoreTarget, true)
				for _, a := range collectLoads(s.StoreValue) {
					addRef(&out, c, dom, a, false)
				}
			case ir.StmtReduceStore:
				addRef(&out, c, dom, s.ReduceTarget, false)
				addRef(&out, c, dom, s.ReduceTarget, true)
				for _, a := range collectLoads(s.ReduceValue) {
					addRef(&out, c, dom, a, false)
				}
				for _, a := range collectLoads(s.ReduceInit) {
					addRef(&out, c, dom, a, false)
				}
			case ir.StmtBlock:
				for _, child := range s.Stmts {
					walk(child)
				}
			}
		}
		walk(c.Body)
	}
	return out, nil
}

func addRef(out *[]Ref, c *ir.Compute, dom *islx.BasicSet, a ir.Access, write bool) {
	m, err := buildAccessMap(c, dom, a)
	if err != nil {
		return // non-affine access, silently dropped per spec.md §4.3
	}
	*out = append(*out, Ref{Compute: c.Name, Tensor: a.Tensor.Name, Write: write, Map: m})
}

// collectLoads finds every Load subterm of e, returning each as an
// Access so it can be fed through the same extraction path as a
// Store/ReduceStore target.
func collectLoads(e *ir.Expr) []ir.Access {
	var out []ir.Access
	var walk func(e *ir.Expr)
	walk = func(e *ir.Expr) {
		if e == nil {
			return
		}
		switch e.Kind {
		case ir.ExprLoad:
			out = append(out, ir.Access{Tensor: e.Tensor, Index: e.Index})
			for _, idx := range e.Index {
				walk(idx)
			}
		case ir.ExprBinary:
			walk(e.Left)
			walk(e.Right)
		case ir.ExprUnary:
			walk(e.Operand)
		case ir.ExprCallExpr:
			for _, a := range e.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return out
}

func buildAccessMap(c *ir.Compute, dom *islx.BasicSet, a ir.Access) (*islx.BasicMap, error) {
	iterNames := c.Domain.IteratorNames()
	idxTexts := make([]string, len(a.Index))
	for i, idx := range a.Index {
		t, err := affine.Expr(idx)
		if err != nil {
			return nil, err
		}
		idxTexts[i] = t
	}
	outDims := make([]string, len(a.Index))
	var conj []string
	for k := range a.Index {
		outDims[k] = fmt.Sprintf("%s#%d", a.Tensor.Name, k)
		conj = append(conj, fmt.Sprintf("%s = %s", outDims[k], idxTexts[k]))
	}
	constraintsStr := "1 = 1"
	if len(conj) > 0 {
		constraintsStr = strings.Join(conj, " and ")
	}
	paramsStr, inTuple, _, err := affine.Header(c.Domain.Params, c.Name, iterNames, nil)
	if err != nil {
		return nil, err
	}
	outTuple := fmt.Sprintf("%s[%s]", a.Tensor.Name, strings.Join(outDims, ","))
	var text string
	if paramsStr == "[]" {
		text = fmt.Sprintf("{ %s -> %s : %s }", inTuple, outTuple, constraintsStr)
	} else {
		text = fmt.Sprintf("%s -> { %s -> %s : %s }", paramsStr, inTuple, outTuple, constraintsStr)
	}
	um, err := islx.ParseMap(text)
	if err != nil {
		return nil, err
	}
	if len(um.Pieces) != 1 {
		return nil, perr.Unsupported(c.Name, "access index expressions containing a top-level disjunction are not supported")
	}
	names := make(map[string]string, len(iterNames))
	for _, n := range iterNames {
		names[n] = dsbuild.NamespacedDim(c.Name, n)
	}
	m := um.Pieces[0].Rename(names)
	return islx.IntersectDomain(m, dom)
}
