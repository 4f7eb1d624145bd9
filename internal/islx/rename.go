package islx

// renameLinExpr renames variables according to names (old -> new),
// leaving any variable absent from the map untouched.
func renameLinExpr(e LinExpr, names map[string]string) LinExpr {
	out := zeroLin()
	out.Const = e.Const
	for k, v := range e.Coeffs {
		if nk, ok := names[k]; ok {
			out.Coeffs[nk] += v
		} else {
			out.Coeffs[k] += v
		}
	}
	return out
}

func renameList(names []string, m map[string]string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if nn, ok := m[n]; ok {
			out[i] = nn
		} else {
			out[i] = n
		}
	}
	return out
}

// Rename applies a variable renaming to every dimension, existential,
// and constraint of a BasicSet — the mechanism internal/dsbuild uses
// to namespace a parsed Compute's raw iterator names ("i", "j") into
// the "tupleName$dimName" scheme spec.md §6 defines, so two
// statements' domains never collide when composed into a map.
func (s *BasicSet) Rename(names map[string]string) *BasicSet {
	out := &BasicSet{
		Params: s.Params,
		Dims:   renameList(s.Dims, names),
		Exists: renameList(s.Exists, names),
	}
	for _, e := range s.Ineqs {
		out.Ineqs = append(out.Ineqs, renameLinExpr(e, names))
	}
	for _, e := range s.Eqs {
		out.Eqs = append(out.Eqs, renameLinExpr(e, names))
	}
	return out
}

// Rename applies a variable renaming to a BasicMap's input tuple,
// output tuple, existentials, and constraints.
func (m *BasicMap) Rename(names map[string]string) *BasicMap {
	out := &BasicMap{
		Params:  m.Params,
		InDims:  renameList(m.InDims, names),
		OutDims: renameList(m.OutDims, names),
		Exists:  renameList(m.Exists, names),
	}
	for _, e := range m.Ineqs {
		out.Ineqs = append(out.Ineqs, renameLinExpr(e, names))
	}
	for _, e := range m.Eqs {
		out.Eqs = append(out.Eqs, renameLinExpr(e, names))
	}
	return out
}
