package islx

// fm.go implements the Fourier-Motzkin elimination the rest of islx's
// emptiness, subset, and equality queries rest on. It works over the
// rational relaxation of a BasicSet/BasicMap's constraints — sound for
// detecting emptiness, but (like the floor/mod aux-variable encoding
// in linear.go) not a full integer-emptiness decision procedure. That
// is a deliberate, documented narrowing from isl's exact integer
// projection; none of this module's scenarios need the distinction.

// eliminateVar removes v from a list of ">= 0" inequalities by pairing
// every inequality where v has a positive coefficient with every
// inequality where it has a negative one, and carries inequalities
// where v's coefficient is already zero through unchanged.
func eliminateVar(ineqs []LinExpr, v string) []LinExpr {
	var pos, neg, rest []LinExpr
	for _, e := range ineqs {
		c := e.coeffOf(v)
		switch {
		case c > 0:
			pos = append(pos, e)
		case c < 0:
			neg = append(neg, e)
		default:
			rest = append(rest, e)
		}
	}
	out := rest
	for _, l := range pos {
		aL := l.coeffOf(v)
		restL := withoutVar(l, v)
		for _, u := range neg {
			bU := -u.coeffOf(v)
			restU := withoutVar(u, v)
			out = append(out, restU.scale(aL).add(restL.scale(bU)))
		}
	}
	return out
}

func withoutVar(e LinExpr, v string) LinExpr {
	out := e.clone()
	delete(out.Coeffs, v)
	return out
}

// rationalEmpty reports whether a system of ">= 0" inequalities has no
// real solution, by eliminating every named variable in turn and
// checking whether a constant contradiction remains.
func rationalEmpty(ineqs []LinExpr, vars []string) bool {
	cur := ineqs
	for _, v := range vars {
		cur = eliminateVar(cur, v)
		if len(cur) > 4096 {
			// Pathological blowup guard: treat as non-empty rather
			// than spin. None of this module's scenarios come close.
			return false
		}
	}
	for _, e := range cur {
		if len(e.vars()) == 0 && e.Const < 0 {
			return true
		}
	}
	return false
}

func eqToIneqs(eqs []LinExpr) []LinExpr {
	out := make([]LinExpr, 0, len(eqs)*2)
	for _, e := range eqs {
		out = append(out, e, e.neg())
	}
	return out
}

// IsEmpty reports whether s admits no solution.
func (s *BasicSet) IsEmpty() bool {
	ineqs := append(append([]LinExpr{}, s.Ineqs...), eqToIneqs(s.Eqs)...)
	return rationalEmpty(ineqs, s.allVars())
}

// IsEmpty reports whether m admits no solution.
func (m *BasicMap) IsEmpty() bool { return m.asBasicSet().IsEmpty() }

// IsEmpty reports whether every piece of u is empty.
func (u *UnionSet) IsEmpty() bool {
	for _, p := range u.Pieces {
		if !p.IsEmpty() {
			return false
		}
	}
	return true
}

// IsEmpty reports whether every piece of u is empty.
func (u *UnionMap) IsEmpty() bool {
	for _, p := range u.Pieces {
		if !p.IsEmpty() {
			return false
		}
	}
	return true
}

// negateBasicSet returns the disjuncts of ¬s, one BasicSet per negated
// constraint: for each inequality e>=0 its negation is -e-1>=0, for
// each equality e==0 the negation splits into e-1>=0 and -e-1>=0.
func negateBasicSet(s *BasicSet) []*BasicSet {
	var out []*BasicSet
	for _, e := range s.Ineqs {
		out = append(out, &BasicSet{Params: s.Params, Dims: s.Dims, Exists: s.Exists, Ineqs: []LinExpr{e.neg().add(litLin(-1))}})
	}
	for _, e := range s.Eqs {
		out = append(out, &BasicSet{Params: s.Params, Dims: s.Dims, Exists: s.Exists, Ineqs: []LinExpr{e.add(litLin(-1))}})
		out = append(out, &BasicSet{Params: s.Params, Dims: s.Dims, Exists: s.Exists, Ineqs: []LinExpr{e.neg().add(litLin(-1))}})
	}
	return out
}

// Subset reports whether every point of a also satisfies b's single
// conjunct. Only defined when b has exactly one piece: checking
// against a union right-hand side needs the full De Morgan expansion
// isl performs internally, which this engine does not implement
// (documented narrowing, alongside the max/min restriction in
// linear.go) — callers needing that combine UnionSet pieces by hand.
func (a *BasicSet) Subset(b *BasicSet) bool {
	for _, neg := range negateBasicSet(b) {
		combined := &BasicSet{
			Params: a.Params,
			Dims:   a.Dims,
			Exists: append(append([]string{}, a.Exists...), neg.Exists...),
			Ineqs:  append(append([]LinExpr{}, a.Ineqs...), neg.Ineqs...),
			Eqs:    append([]LinExpr{}, a.Eqs...),
		}
		if !combined.IsEmpty() {
			return false
		}
	}
	return true
}

// Equal reports whether a and b denote the same set (mutual subset).
func (a *BasicSet) Equal(b *BasicSet) bool { return a.Subset(b) && b.Subset(a) }
