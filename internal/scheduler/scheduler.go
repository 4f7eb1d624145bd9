// Package scheduler implements spec.md §4.5's three scheduling modes:
// identity (the ScheduleTree internal/dsbuild already builds), automatic
// (an interchange-and-skew search under a validity and tileability
// check), and fusion (merging several PrimFuncs' schedule trees into
// one, tagged and ordered).
package scheduler

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"

	"loopoly/internal/access"
	"loopoly/internal/deps"
	"loopoly/internal/dsbuild"
	"loopoly/internal/ir"
	"loopoly/internal/islx"
	"loopoly/internal/perr"
	"loopoly/internal/tiler"
)

// Identity returns f's declaration-order ScheduleTree unchanged — the
// baseline every other mode starts from or falls back to.
func Identity(f *ir.PrimFunc) (*islx.ScheduleTree, error) {
	return dsbuild.BuildScheduleTree(f)
}

// Automatic searches for a legal, better-than-identity schedule for a
// single-Compute PrimFunc: every permutation of its spatial iterators
// (reduce iterators are always pinned innermost, since moving a
// reduction outward changes its accumulation order), plus a bounded set
// of pairwise-skewed variants of the declared order (one iterator's row
// replaced by an affine combination with its neighbor, spec.md §4.5
// mode 2's validity+proximity solver reduced to the two-iterator case
// this engine attempts rather than a general ILP search), is tried
// against the dependence set computed under the identity schedule.
// Among every schedule-legal candidate, the one whose leading axes carry
// the most provably non-negative dependence distances is kept — the
// actual requirement for those axes to survive a later tiling pass, not
// just to execute correctly (a plain interchange can already be legal
// to execute, as the identity order of a stencil's shifted read is,
// while still being untileable on the axis carrying the shift, which is
// exactly why a skew is needed: spec.md §8 S7). Ties are broken toward
// whichever candidate is found first, preferring the identity order
// since its permutation is always tried first. Multi-Compute PrimFuncs
// fall back to Identity: interchange search across statements needs a
// real cost model (isl's proximity heuristic) this engine does not
// attempt — a documented scope narrowing, not a missing feature for the
// single-statement case this spec's scenarios exercise.
func Automatic(f *ir.PrimFunc) (*islx.ScheduleTree, error) {
	identity, err := Identity(f)
	if err != nil {
		return nil, err
	}
	if len(f.Computes) != 1 {
		return identity, nil
	}
	c := f.Computes[0]
	spatial, reduce := splitIterators(c)
	if len(spatial) > 6 {
		return identity, nil // permutation search guard
	}
	hazards, err := selfDependences(identity, f, c.Name)
	if err != nil {
		return nil, err
	}

	var candidates [][]schedRow
	for _, perm := range permutations(spatial) {
		order := append(append([]string{}, perm...), reduce...)
		candidates = append(candidates, identityRows(order))
	}
	candidates = append(candidates, skewedVariants(append(append([]string{}, spatial...), reduce...))...)

	best := identity
	bestScore := -1
	for _, rows := range candidates {
		candidate, err := buildAffineTree(f, c, rows)
		if err != nil {
			return nil, err
		}
		legal, err := legalAgainst(candidate, c, hazards)
		if err != nil {
			return nil, err
		}
		if !legal {
			continue
		}
		score, err := tileabilityScore(candidate, hazards)
		if err != nil {
			return nil, err
		}
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best, nil
}

// schedRow is one output dimension of a candidate schedule: an affine
// combination of the statement's original iterators. label names the
// row for IterForTimeDim and tileSizes's axis lookup: the bare iterator
// for a single unit-coefficient variable, or a synthesized "a+b"/"a-b"
// combination name for a genuine skew row, so a caller can still
// address it by name when tiling (spec.md §8 S7 tiles both skewed
// axes).
type schedRow struct {
	label  string
	coeffs map[string]int64
}

// identityRows builds one schedRow per iterator in order, each the bare
// iterator itself — buildAffineTree's input for a plain interchange
// candidate.
func identityRows(order []string) []schedRow {
	rows := make([]schedRow, len(order))
	for i, name := range order {
		rows[i] = schedRow{label: name, coeffs: map[string]int64{name: 1}}
	}
	return rows
}

// skewedVariants generates, for each adjacent pair of iterators in the
// declared order, a candidate schedule where the earlier axis becomes
// the sum (or difference) of the pair and the later axis keeps the
// earlier iterator alone — e.g. for order [i, j] this produces c0 =
// i+j, c1 = i (spec.md §8 S7's exact skew). This is a bounded pairwise
// search, not a general affine scheduler: it covers the two-iterator
// skew spec.md's scenarios need without attempting a full validity +
// proximity ILP solve.
func skewedVariants(order []string) [][]schedRow {
	var out [][]schedRow
	for p := 0; p+1 < len(order); p++ {
		a, b := order[p], order[p+1]
		for _, k := range []int64{1, -1} {
			op := "+"
			if k == -1 {
				op = "-"
			}
			rows := identityRows(order)
			rows[p] = schedRow{label: a + op + b, coeffs: map[string]int64{a: 1, b: k}}
			rows[p+1] = schedRow{label: a, coeffs: map[string]int64{a: 1}}
			out = append(out, rows)
		}
	}
	return out
}

// tileabilityScore counts candidate's leading time dimensions, starting
// from the outermost, that tiler.AxisNonNegative can prove never carry
// a negative dependence distance against hazards — the count of axes a
// subsequent tiling pass could legally strip-mine before hitting one it
// can't.
func tileabilityScore(candidate *islx.ScheduleTree, hazards []deps.Dependence) (int, error) {
	score := 0
	for axis := range candidate.TimeDims {
		ok, err := tiler.AxisNonNegative(candidate, axis, hazards)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		score++
	}
	return score, nil
}

func splitIterators(c *ir.Compute) (spatial, reduce []string) {
	for _, it := range c.Domain.Iterators {
		if it.Kind == ir.Reduce {
			reduce = append(reduce, it.Name)
		} else {
			spatial = append(spatial, it.Name)
		}
	}
	return spatial, reduce
}

func permutations(xs []string) [][]string {
	if len(xs) <= 1 {
		return [][]string{append([]string{}, xs...)}
	}
	var out [][]string
	for i := range xs {
		rest := make([]string, 0, len(xs)-1)
		rest = append(rest, xs[:i]...)
		rest = append(rest, xs[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{xs[i]}, p...))
		}
	}
	return out
}

// buildAffineTree constructs a single-Compute ScheduleTree identical to
// dsbuild's, except each output time dimension is the arbitrary affine
// combination of the statement's iterators rows[k] describes, rather
// than dsbuild's one-iterator-per-dimension identity map. This is what
// lets Automatic's search produce a skewed schedule and not just an
// interchange.
func buildAffineTree(f *ir.PrimFunc, c *ir.Compute, rows []schedRow) (*islx.ScheduleTree, error) {
	dom, err := dsbuild.BuildDomain(c)
	if err != nil {
		return nil, err
	}
	timeDims := make([]string, len(rows))
	var eqs []islx.LinExpr
	iterForTimeDim := make([]string, len(rows))
	for k, row := range rows {
		timeDims[k] = fmt.Sprintf("time#%d", k)
		coeffs := map[string]int64{timeDims[k]: 1}
		for iterName, coeff := range row.coeffs {
			dim := dsbuild.NamespacedDim(c.Name, iterName)
			coeffs[dim] = -coeff
		}
		eqs = append(eqs, islx.LinExpr{Coeffs: coeffs})
		iterForTimeDim[k] = row.label
	}
	sched := &islx.BasicMap{Params: dom.Params, InDims: dom.Dims, OutDims: timeDims, Eqs: eqs}
	return &islx.ScheduleTree{
		Params:   dom.Params,
		TimeDims: timeDims,
		Stmts: []islx.StmtSchedule{{
			Name: c.Name, Domain: dom, Schedule: sched, IterForTimeDim: iterForTimeDim,
		}},
	}, nil
}

// selfDependences extracts from f's full dependence analysis (run
// under the identity schedule, which defines the source-before-target
// convention for every hazard) the subset internal to one Compute.
func selfDependences(identity *islx.ScheduleTree, f *ir.PrimFunc, computeName string) ([]deps.Dependence, error) {
	refs, err := access.Extract(f)
	if err != nil {
		return nil, err
	}
	all, err := deps.Analyze(identity, refs)
	if err != nil {
		return nil, err
	}
	var out []deps.Dependence
	for _, d := range all {
		if d.Earlier.Compute == computeName && d.Later.Compute == computeName {
			out = append(out, d)
		}
	}
	return out, nil
}

// legalAgainst reports whether candidate preserves every hazard: for
// each dependence's (src -> dst) relation, candidate's schedule of dst
// must never be lexicographically before candidate's schedule of src.
// A UnionMap hazard relation is checked piece by piece, since a
// violation in any one piece makes the candidate illegal.
func legalAgainst(candidate *islx.ScheduleTree, c *ir.Compute, hazards []deps.Dependence) (bool, error) {
	sched := candidate.Stmts[0].Schedule
	srcSched := sched.Rename(combinedRename(sched.InDims, "src$", sched.OutDims, "s"))
	dstSched := sched.Rename(combinedRename(sched.InDims, "dst$", sched.OutDims, "d"))
	violation := islx.LexLess(candidate.Params, prefixed(sched.OutDims, "d"), prefixed(sched.OutDims, "s"))

	for _, h := range hazards {
		for _, piece := range h.Relation.Pieces {
			proj, err := islx.Compose(piece, dstSched)
			if err != nil {
				return false, err
			}
			joint, err := islx.RangeProduct(srcSched, proj)
			if err != nil {
				return false, err
			}
			for _, vp := range violation.Pieces {
				merged, err := islx.IntersectMaps(joint, vp)
				if err != nil {
					continue
				}
				if !merged.IsEmpty() {
					return false, nil
				}
			}
		}
	}
	return true, nil
}

func prefixed(names []string, prefix string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = prefix + n
	}
	return out
}

func combinedRename(inDims []string, inPrefix string, outDims []string, outPrefix string) map[string]string {
	m := make(map[string]string, len(inDims)+len(outDims))
	for _, n := range inDims {
		m[n] = inPrefix + n
	}
	for _, n := range outDims {
		m[n] = outPrefix + n
	}
	return m
}

// caseFold canonicalizes a name for the fused statement-tag naming
// rule below, so two names differing only in case compare equal —
// the behavior original_source/impact_2019_8's isl_fusion.py relies
// on when it lower-cases generated statement names before building
// the fused schedule.
var caseFold = cases.Fold()

// Fuse merges several PrimFuncs' identity schedule trees into one,
// following the f{index}_{sanitized}__{sanitized} naming rule: each
// statement's tag is its owning PrimFunc's index, and its name is
// prefixed with the case-folded, sanitized PrimFunc and Compute names
// so two PrimFuncs that declare identically-named Computes never
// collide in the fused tree. The shared iterator-name-collision
// assumption spec.md §9 calls out — that fused PrimFuncs use
// consistent iterator names for axes meant to share a loop — is the
// caller's responsibility; Fuse does not attempt to detect or rename
// around a mismatch.
func Fuse(funcs []*ir.PrimFunc) (*islx.ScheduleTree, error) {
	if len(funcs) == 0 {
		return nil, perr.Malformed("fuse", "no PrimFuncs to fuse")
	}
	maxLen := 0
	trees := make([]*islx.ScheduleTree, len(funcs))
	for i, f := range funcs {
		t, err := Identity(f)
		if err != nil {
			return nil, err
		}
		trees[i] = t
		if len(t.TimeDims) > maxLen {
			maxLen = len(t.TimeDims)
		}
	}
	totalT := maxLen + 1 // trailing fusion-tag dimension
	timeDims := make([]string, totalT)
	for k := range timeDims {
		timeDims[k] = fmt.Sprintf("time#%d", k)
	}

	var params []string
	seen := map[string]bool{}
	var stmts []islx.StmtSchedule
	for fi, f := range funcs {
		t := trees[fi]
		for _, st := range t.Stmts {
			newName := FusedName(fi, f.Name, st.Name)
			rename := map[string]string{}
			for _, d := range st.Domain.Dims {
				rename[d] = newName + "$" + d
			}
			for k, old := range t.TimeDims {
				rename[old] = timeDims[k]
			}
			dom := st.Domain.Rename(rename)
			sched := st.Schedule.Rename(rename)

			var padEqs []islx.LinExpr
			for k := len(t.TimeDims); k < maxLen; k++ {
				padEqs = append(padEqs, islx.LinExpr{Coeffs: map[string]int64{timeDims[k]: 1}})
			}
			padEqs = append(padEqs, islx.LinExpr{Coeffs: map[string]int64{timeDims[maxLen]: 1}, Const: -int64(fi)})
			sched = &islx.BasicMap{
				Params:  sched.Params,
				InDims:  sched.InDims,
				OutDims: timeDims,
				Exists:  sched.Exists,
				Ineqs:   sched.Ineqs,
				Eqs:     append(append([]islx.LinExpr{}, sched.Eqs...), padEqs...),
			}

			iterForTimeDim := make([]string, totalT)
			for k, name := range st.IterForTimeDim {
				iterForTimeDim[k] = name
			}

			for _, p := range dom.Params {
				if !seen[p] {
					seen[p] = true
					params = append(params, p)
				}
			}
			stmts = append(stmts, islx.StmtSchedule{
				Name: newName, Domain: dom, Schedule: sched, IterForTimeDim: iterForTimeDim,
			})
		}
	}
	sort.Strings(params)
	return &islx.ScheduleTree{Params: params, Stmts: stmts, TimeDims: timeDims}, nil
}

// FusedName computes the f{index}_{sanitized}__{sanitized} tag Fuse
// assigns to a statement, exported so callers that reconstruct a
// merged PrimFunc view from Fuse's output (internal/lower needs to
// look Computes up by this exact name) don't have to duplicate the
// naming rule.
func FusedName(fusedIndex int, funcName, computeName string) string {
	return fmt.Sprintf("f%d_%s__%s", fusedIndex, sanitize(funcName), sanitize(computeName))
}

func sanitize(name string) string {
	folded := caseFold.String(name)
	out := make([]rune, 0, len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

