package islx

import "loopoly/internal/perr"

// BasicSet is a conjunction of affine equalities and inequalities
// (each inequality meaning expr >= 0) over a named tuple of
// dimensions, plus whatever existential auxiliary variables floor/mod
// linearization introduced. Dims/Params carry the namespacing scheme
// spec.md §6 defines for islx: domain dims are "tupleName$dimName".
type BasicSet struct {
	Params []string
	Dims   []string
	Exists []string
	Ineqs  []LinExpr
	Eqs    []LinExpr
}

// BasicMap is a BasicSet split into an input and an output tuple; all
// linear expressions range over Params ∪ InDims ∪ OutDims ∪ Exists.
type BasicMap struct {
	Params  []string
	InDims  []string
	OutDims []string
	Exists  []string
	Ineqs   []LinExpr
	Eqs     []LinExpr
}

// UnionSet and UnionMap are disjoint unions of basic pieces — the
// result of a parse that hit top-level "or", or of an operation
// (union, projection) that cannot be expressed as one basic piece.
type UnionSet struct{ Pieces []*BasicSet }
type UnionMap struct{ Pieces []*BasicMap }

// expandNE rewrites every "!=" leaf into "or" of "<" and ">", so the
// DNF walk below only ever has to handle five comparison operators.
func expandNE(n *constrNode) *constrNode {
	if n == nil {
		return nil
	}
	if n.op == "and" || n.op == "or" {
		return &constrNode{op: n.op, lhs: expandNE(n.lhs), rhs: expandNE(n.rhs)}
	}
	if n.op == "!=" {
		return &constrNode{op: "or",
			lhs: &constrNode{op: "<", left: n.left, right: n.right},
			rhs: &constrNode{op: ">", left: n.left, right: n.right},
		}
	}
	return n
}

// toDNF flattens an and/or tree of comparisons into a list of
// conjunctions (each a list of comparison leaves).
func toDNF(n *constrNode) [][]*constrNode {
	if n == nil {
		return [][]*constrNode{{}}
	}
	switch n.op {
	case "or":
		return append(toDNF(n.lhs), toDNF(n.rhs)...)
	case "and":
		left := toDNF(n.lhs)
		right := toDNF(n.rhs)
		out := make([][]*constrNode, 0, len(left)*len(right))
		for _, l := range left {
			for _, r := range right {
				combined := make([]*constrNode, 0, len(l)+len(r))
				combined = append(combined, l...)
				combined = append(combined, r...)
				out = append(out, combined)
			}
		}
		return out
	default:
		return [][]*constrNode{{n}}
	}
}

// conjToConstraints linearizes one DNF conjunct into the
// equality/inequality/existential triple shared by BasicSet and
// BasicMap construction.
func conjToConstraints(leaves []*constrNode) (ineqs, eqs []LinExpr, exists []string, err error) {
	b := &builder{}
	for _, leaf := range leaves {
		lhs, err := b.linearize(leaf.left)
		if err != nil {
			return nil, nil, nil, err
		}
		rhs, err := b.linearize(leaf.right)
		if err != nil {
			return nil, nil, nil, err
		}
		diff := lhs.sub(rhs)
		switch leaf.op {
		case "<":
			ineqs = append(ineqs, diff.neg().add(litLin(-1)))
		case "<=":
			ineqs = append(ineqs, diff.neg())
		case ">":
			ineqs = append(ineqs, diff.add(litLin(-1)))
		case ">=":
			ineqs = append(ineqs, diff)
		case "=":
			eqs = append(eqs, diff)
		default:
			return nil, nil, nil, perr.Polyhedral(leaf.op, errUnsupportedCompare)
		}
	}
	eqs = append(eqs, b.extraEq...)
	for _, mb := range b.modBounds {
		ineqs = append(ineqs, varLin(mb.rvar))
		ineqs = append(ineqs, litLin(mb.modulus-1).sub(varLin(mb.rvar)))
	}
	return ineqs, eqs, b.exists, nil
}

var errUnsupportedCompare = perrUnsupportedCompareErr{}

type perrUnsupportedCompareErr struct{}

func (perrUnsupportedCompareErr) Error() string { return "unsupported comparison operator" }

// ParseSet parses a set literal such as "[N] -> { S[i,j] : 0 <= i < N }"
// into a UnionSet, one BasicSet per top-level disjunct.
func ParseSet(text string) (*UnionSet, error) {
	sp, err := parseSpace(text)
	if err != nil {
		return nil, perr.Polyhedral(text, err)
	}
	if sp.isMap {
		return nil, perr.Polyhedral(text, errExpectedSet)
	}
	out := &UnionSet{}
	for _, conj := range toDNF(expandNE(sp.formula)) {
		ineqs, eqs, exists, err := conjToConstraints(conj)
		if err != nil {
			return nil, err
		}
		out.Pieces = append(out.Pieces, &BasicSet{
			Params: sp.params,
			Dims:   sp.inDims,
			Exists: exists,
			Ineqs:  ineqs,
			Eqs:    eqs,
		})
	}
	return out, nil
}

// ParseMap parses a map literal such as
// "[N] -> { A[i] -> B[i,j] : 0 <= j < N }" into a UnionMap.
func ParseMap(text string) (*UnionMap, error) {
	sp, err := parseSpace(text)
	if err != nil {
		return nil, perr.Polyhedral(text, err)
	}
	if !sp.isMap {
		return nil, perr.Polyhedral(text, errExpectedMap)
	}
	out := &UnionMap{}
	for _, conj := range toDNF(expandNE(sp.formula)) {
		ineqs, eqs, exists, err := conjToConstraints(conj)
		if err != nil {
			return nil, err
		}
		out.Pieces = append(out.Pieces, &BasicMap{
			Params:  sp.params,
			InDims:  sp.inDims,
			OutDims: sp.outDims,
			Exists:  exists,
			Ineqs:   ineqs,
			Eqs:     eqs,
		})
	}
	return out, nil
}

var errExpectedSet = simpleErr("expected a set literal, got a map")
var errExpectedMap = simpleErr("expected a map literal, got a set")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

// allVars returns every variable a BasicSet ranges over: its exposed
// dims, its existentials, and its params, in that order.
func (s *BasicSet) allVars() []string {
	out := make([]string, 0, len(s.Dims)+len(s.Exists)+len(s.Params))
	out = append(out, s.Dims...)
	out = append(out, s.Exists...)
	out = append(out, s.Params...)
	return out
}

func (m *BasicMap) allVars() []string {
	out := make([]string, 0, len(m.InDims)+len(m.OutDims)+len(m.Exists)+len(m.Params))
	out = append(out, m.InDims...)
	out = append(out, m.OutDims...)
	out = append(out, m.Exists...)
	out = append(out, m.Params...)
	return out
}

// asBasicSet views a BasicMap's (InDims ++ OutDims) as one flat tuple,
// for reuse of the set-shaped Fourier-Motzkin machinery.
func (m *BasicMap) asBasicSet() *BasicSet {
	dims := make([]string, 0, len(m.InDims)+len(m.OutDims))
	dims = append(dims, m.InDims...)
	dims = append(dims, m.OutDims...)
	return &BasicSet{Params: m.Params, Dims: dims, Exists: m.Exists, Ineqs: m.Ineqs, Eqs: m.Eqs}
}
