package islx

import "loopoly/internal/perr"

func mergeParams(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range a {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range b {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// IntersectSets intersects two BasicSets sharing the same Dims tuple
// (same names — the namespacing scheme guarantees two accesses or
// schedules against the same statement share dim names).
func IntersectSets(a, b *BasicSet) (*BasicSet, error) {
	if len(a.Dims) != len(b.Dims) {
		return nil, perr.Polyhedral("intersect", errDimMismatch)
	}
	for i := range a.Dims {
		if a.Dims[i] != b.Dims[i] {
			return nil, perr.Polyhedral("intersect", errDimMismatch)
		}
	}
	return &BasicSet{
		Params: mergeParams(a.Params, b.Params),
		Dims:   a.Dims,
		Exists: append(append([]string{}, a.Exists...), b.Exists...),
		Ineqs:  append(append([]LinExpr{}, a.Ineqs...), b.Ineqs...),
		Eqs:    append(append([]LinExpr{}, a.Eqs...), b.Eqs...),
	}, nil
}

var errDimMismatch = simpleErr("operands range over different dimension tuples")

// IntersectMaps intersects two BasicMaps that already share the same
// InDims and OutDims name lists.
func IntersectMaps(a, b *BasicMap) (*BasicMap, error) {
	if len(a.InDims) != len(b.InDims) || len(a.OutDims) != len(b.OutDims) {
		return nil, perr.Polyhedral("intersect_map", errDimMismatch)
	}
	for i := range a.InDims {
		if a.InDims[i] != b.InDims[i] {
			return nil, perr.Polyhedral("intersect_map", errDimMismatch)
		}
	}
	for i := range a.OutDims {
		if a.OutDims[i] != b.OutDims[i] {
			return nil, perr.Polyhedral("intersect_map", errDimMismatch)
		}
	}
	return &BasicMap{
		Params:  mergeParams(a.Params, b.Params),
		InDims:  a.InDims,
		OutDims: a.OutDims,
		Exists:  append(append([]string{}, a.Exists...), b.Exists...),
		Ineqs:   append(append([]LinExpr{}, a.Ineqs...), b.Ineqs...),
		Eqs:     append(append([]LinExpr{}, a.Eqs...), b.Eqs...),
	}, nil
}

// Union concatenates the pieces of two UnionSets (set union).
func (u *UnionSet) Union(o *UnionSet) *UnionSet {
	out := &UnionSet{}
	out.Pieces = append(out.Pieces, u.Pieces...)
	out.Pieces = append(out.Pieces, o.Pieces...)
	return out
}

// Union concatenates the pieces of two UnionMaps (relation union).
func (u *UnionMap) Union(o *UnionMap) *UnionMap {
	out := &UnionMap{}
	out.Pieces = append(out.Pieces, u.Pieces...)
	out.Pieces = append(out.Pieces, o.Pieces...)
	return out
}

// Reverse swaps a map's input and output tuples. Because constraints
// reference variables purely by name, swapping the two name lists is
// the entire operation — {A[i] -> B[j] : C} reversed is {B[j] -> A[i] : C}.
func (m *BasicMap) Reverse() *BasicMap {
	return &BasicMap{
		Params:  m.Params,
		InDims:  m.OutDims,
		OutDims: m.InDims,
		Exists:  m.Exists,
		Ineqs:   m.Ineqs,
		Eqs:     m.Eqs,
	}
}

// Reverse reverses every piece of a UnionMap.
func (u *UnionMap) Reverse() *UnionMap {
	out := &UnionMap{}
	for _, p := range u.Pieces {
		out.Pieces = append(out.Pieces, p.Reverse())
	}
	return out
}

// Compose builds a ∘ b's relation (first apply a, then b): a: X->Y,
// b: Y->Z yields X->Z, existentially quantifying the shared Y tuple.
// a.OutDims and b.InDims must already be the same variable names —
// spec.md §6's access-relation namespacing ("tensorName#k") guarantees
// this whenever a and b both describe accesses to the same tensor.
func Compose(a, b *BasicMap) (*BasicMap, error) {
	if len(a.OutDims) != len(b.InDims) {
		return nil, perr.Polyhedral("compose", errDimMismatch)
	}
	for i := range a.OutDims {
		if a.OutDims[i] != b.InDims[i] {
			return nil, perr.Polyhedral("compose", errDimMismatch)
		}
	}
	exists := append(append([]string{}, a.Exists...), b.Exists...)
	exists = append(exists, a.OutDims...)
	return &BasicMap{
		Params:  mergeParams(a.Params, b.Params),
		InDims:  a.InDims,
		OutDims: b.OutDims,
		Exists:  exists,
		Ineqs:   append(append([]LinExpr{}, a.Ineqs...), b.Ineqs...),
		Eqs:     append(append([]LinExpr{}, a.Eqs...), b.Eqs...),
	}, nil
}

// ApplyRange restricts m's input tuple to domain (same names as
// m.InDims) and existentially quantifies it away, yielding the image
// as a BasicSet over m.OutDims.
func ApplyRange(m *BasicMap, domain *BasicSet) (*BasicSet, error) {
	if len(m.InDims) != len(domain.Dims) {
		return nil, perr.Polyhedral("apply_range", errDimMismatch)
	}
	for i := range m.InDims {
		if m.InDims[i] != domain.Dims[i] {
			return nil, perr.Polyhedral("apply_range", errDimMismatch)
		}
	}
	exists := append(append([]string{}, m.Exists...), domain.Exists...)
	exists = append(exists, m.InDims...)
	return &BasicSet{
		Params: mergeParams(m.Params, domain.Params),
		Dims:   m.OutDims,
		Exists: exists,
		Ineqs:  append(append([]LinExpr{}, m.Ineqs...), domain.Ineqs...),
		Eqs:    append(append([]LinExpr{}, m.Eqs...), domain.Eqs...),
	}, nil
}

// ApplyDomain is ApplyRange on the reversed map: it restricts m's
// output tuple to range and yields the preimage over m.InDims.
func ApplyDomain(m *BasicMap, rng *BasicSet) (*BasicSet, error) {
	return ApplyRange(m.Reverse(), rng)
}

// Deltas computes {d : exists (x, y) in m, d = y - x}, the dependence
// distance vectors the tiler's legality check (spec.md §4.6) and the
// scheduler's validity check (spec.md §4.5) both consume. m's input
// and output tuples must have equal length.
func Deltas(m *BasicMap) (*BasicSet, error) {
	if len(m.InDims) != len(m.OutDims) {
		return nil, perr.Polyhedral("deltas", errDimMismatch)
	}
	n := len(m.InDims)
	dims := make([]string, n)
	eqs := make([]LinExpr, n)
	for i := 0; i < n; i++ {
		dims[i] = deltaDimName(i)
		// d_i - (out_i - in_i) == 0
		eqs[i] = varLin(dims[i]).sub(varLin(m.OutDims[i])).add(varLin(m.InDims[i]))
	}
	exists := append(append([]string{}, m.Exists...), m.InDims...)
	exists = append(exists, m.OutDims...)
	return &BasicSet{
		Params: m.Params,
		Dims:   dims,
		Exists: exists,
		Ineqs:  append([]LinExpr{}, m.Ineqs...),
		Eqs:    append(append([]LinExpr{}, m.Eqs...), eqs...),
	}, nil
}

func deltaDimName(i int) string {
	return "delta$" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

// LexLess builds {in -> out : in is lexicographically strictly before
// out}, the "before(S)" relation spec.md §4.4 composes dependence
// candidates against. inNames and outNames must have equal length and
// be pairwise distinct (two independent copies of the same tuple).
func LexLess(params, inNames, outNames []string) *UnionMap {
	n := len(inNames)
	out := &UnionMap{}
	for k := 0; k < n; k++ {
		var eqs []LinExpr
		for i := 0; i < k; i++ {
			eqs = append(eqs, varLin(inNames[i]).sub(varLin(outNames[i])))
		}
		ineq := varLin(outNames[k]).sub(varLin(inNames[k])).add(litLin(-1))
		out.Pieces = append(out.Pieces, &BasicMap{
			Params:  params,
			InDims:  inNames,
			OutDims: outNames,
			Eqs:     eqs,
			Ineqs:   []LinExpr{ineq},
		})
	}
	return out
}

// IntersectRange intersects the image of m with an arbitrary
// constraint set over m.OutDims, without eliminating the input tuple
// — used to restrict a schedule map to one statement's domain while
// keeping both tuples live for further composition.
func IntersectRange(m *BasicMap, rng *BasicSet) (*BasicMap, error) {
	if len(m.OutDims) != len(rng.Dims) {
		return nil, perr.Polyhedral("intersect_range", errDimMismatch)
	}
	for i := range m.OutDims {
		if m.OutDims[i] != rng.Dims[i] {
			return nil, perr.Polyhedral("intersect_range", errDimMismatch)
		}
	}
	return &BasicMap{
		Params:  mergeParams(m.Params, rng.Params),
		InDims:  m.InDims,
		OutDims: m.OutDims,
		Exists:  append(append([]string{}, m.Exists...), rng.Exists...),
		Ineqs:   append(append([]LinExpr{}, m.Ineqs...), rng.Ineqs...),
		Eqs:     append(append([]LinExpr{}, m.Eqs...), rng.Eqs...),
	}, nil
}

// RangeProduct combines two maps sharing the same input tuple into one
// map whose output tuple is the concatenation of both outputs — used
// by internal/scheduler to evaluate two independent schedule
// projections of the same source point side by side when checking
// legality of a candidate loop order.
func RangeProduct(a, b *BasicMap) (*BasicMap, error) {
	if len(a.InDims) != len(b.InDims) {
		return nil, perr.Polyhedral("range_product", errDimMismatch)
	}
	for i := range a.InDims {
		if a.InDims[i] != b.InDims[i] {
			return nil, perr.Polyhedral("range_product", errDimMismatch)
		}
	}
	return &BasicMap{
		Params:  mergeParams(a.Params, b.Params),
		InDims:  a.InDims,
		OutDims: append(append([]string{}, a.OutDims...), b.OutDims...),
		Exists:  append(append([]string{}, a.Exists...), b.Exists...),
		Ineqs:   append(append([]LinExpr{}, a.Ineqs...), b.Ineqs...),
		Eqs:     append(append([]LinExpr{}, a.Eqs...), b.Eqs...),
	}, nil
}

// IntersectDomain is IntersectRange on the reversed map.
func IntersectDomain(m *BasicMap, dom *BasicSet) (*BasicMap, error) {
	rev, err := IntersectRange(m.Reverse(), dom)
	if err != nil {
		return nil, err
	}
	return rev.Reverse(), nil
}
