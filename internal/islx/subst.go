package islx

// substitute replaces every occurrence of v in e with expr (v does not
// appear in expr): e = coeff*v + rest becomes rest + coeff*expr.
func substitute(e LinExpr, v string, expr LinExpr) LinExpr {
	coeff := e.coeffOf(v)
	if coeff == 0 {
		return e
	}
	return withoutVar(e, v).add(expr.scale(coeff))
}

// reduceToVars eliminates every variable not in keep from a
// constraint system, preferring exact equality substitution (solving
// an equality for a unit-coefficient variable and substituting it
// everywhere) over Fourier-Motzkin elimination, since the schedule and
// domain equalities islx builds always pin one variable per equality
// with coefficient +-1 by construction. Any non-unit leftovers are
// swept up by eliminateVar's inequality-pair elimination. The result
// is a list of ">= 0" inequalities purely over vars in keep.
func reduceToVars(ineqs, eqs []LinExpr, keep map[string]bool) []LinExpr {
	curIneqs := append([]LinExpr{}, ineqs...)
	curEqs := append([]LinExpr{}, eqs...)
	for {
		idx, v, coeff := -1, "", int64(0)
		for i, e := range curEqs {
			for _, name := range e.vars() {
				if keep[name] {
					continue
				}
				c := e.coeffOf(name)
				if c == 1 || c == -1 {
					idx, v, coeff = i, name, c
					break
				}
			}
			if idx >= 0 {
				break
			}
		}
		if idx < 0 {
			break
		}
		eq := curEqs[idx]
		rest := withoutVar(eq, v)
		var expr LinExpr
		if coeff == 1 {
			expr = rest.neg()
		} else {
			expr = rest
		}
		curEqs = append(curEqs[:idx], curEqs[idx+1:]...)
		for i := range curEqs {
			curEqs[i] = substitute(curEqs[i], v, expr)
		}
		for i := range curIneqs {
			curIneqs[i] = substitute(curIneqs[i], v, expr)
		}
	}
	allIneqs := append(curIneqs, eqToIneqs(curEqs)...)
	leftover := map[string]bool{}
	for _, e := range allIneqs {
		for _, v := range e.vars() {
			if !keep[v] {
				leftover[v] = true
			}
		}
	}
	for v := range leftover {
		allIneqs = eliminateVar(allIneqs, v)
	}
	return allIneqs
}

// SolveForInDims expresses each of sched's InDims as a LinExpr purely
// over OutDims and Params, by repeatedly pivoting sched's equalities
// the same way reduceToVars does: find a unit-coefficient, non-kept
// variable, solve its defining equality for it, and substitute the
// result everywhere else — including into InDims already solved from
// an earlier pivot, since one InDim's solution can itself depend on an
// existential (or another InDim, for a skewed schedule) that only
// gets solved later. This is how an astgen leaf reconstructs a
// statement's original iterator values from a schedule that maps them
// through an arbitrary affine combination (plain identity, a skewed
// sum, or a tile/point split) rather than one iterator per output
// dimension.
func SolveForInDims(sched *BasicMap) map[string]LinExpr {
	keep := make(map[string]bool, len(sched.OutDims)+len(sched.Params))
	for _, d := range sched.OutDims {
		keep[d] = true
	}
	for _, p := range sched.Params {
		keep[p] = true
	}
	eqs := append([]LinExpr{}, sched.Eqs...)
	solved := map[string]LinExpr{}
	for {
		idx, v, coeff := -1, "", int64(0)
		for i, e := range eqs {
			for _, name := range e.vars() {
				if keep[name] {
					continue
				}
				c := e.coeffOf(name)
				if c == 1 || c == -1 {
					idx, v, coeff = i, name, c
					break
				}
			}
			if idx >= 0 {
				break
			}
		}
		if idx < 0 {
			break
		}
		eq := eqs[idx]
		rest := withoutVar(eq, v)
		var expr LinExpr
		if coeff == 1 {
			expr = rest.neg()
		} else {
			expr = rest
		}
		eqs = append(eqs[:idx], eqs[idx+1:]...)
		for i := range eqs {
			eqs[i] = substitute(eqs[i], v, expr)
		}
		for k, se := range solved {
			solved[k] = substitute(se, v, expr)
		}
		solved[v] = expr
	}
	out := make(map[string]LinExpr, len(sched.InDims))
	for _, d := range sched.InDims {
		if e, ok := solved[d]; ok {
			out[d] = e
		}
	}
	return out
}
