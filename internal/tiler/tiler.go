// Package tiler implements spec.md §4.6: band strip-mining of a
// ScheduleTree's leading time dimensions, rejecting any tile size
// vector that would reorder a real dependence's tile-band component
// negative (an illegal tiling, per spec.md §7's IllegalTiling kind).
// A size of 1 on a band axis is a no-op — that axis is left untouched
// rather than split into a degenerate single-iteration tile loop.
package tiler

import (
	"fmt"

	"loopoly/internal/access"
	"loopoly/internal/deps"
	"loopoly/internal/ir"
	"loopoly/internal/islx"
	"loopoly/internal/perr"
)

// Tile strip-mines the leading len(sizes) time dimensions of tree by
// the given sizes, after checking legality against f's dependences
// computed under tree's own order.
func Tile(f *ir.PrimFunc, tree *islx.ScheduleTree, sizes []int) (*islx.ScheduleTree, error) {
	if len(sizes) > len(tree.TimeDims) {
		return nil, perr.IllegalTilingError(tree.TimeDims, "tile size vector is longer than the schedule's time tuple")
	}
	refs, err := access.Extract(f)
	if err != nil {
		return nil, err
	}
	hazards, err := deps.Analyze(tree, refs)
	if err != nil {
		return nil, err
	}
	if err := checkLegal(tree, sizes, hazards); err != nil {
		return nil, err
	}

	tileDims, pointDims := bandDims(tree.TimeDims, sizes)
	remainder := remainderDims(tree.TimeDims, sizes)
	orderedDims := append(append(append([]string{}, tileDims...), remainder...), pointDims...)
	finalNames, steps := positionalNames(tileDims, remainder, pointDims, sizes)
	rename := make(map[string]string, len(orderedDims)+len(sizes))
	for i, d := range orderedDims {
		rename[d] = finalNames[i]
	}
	// Each tiled axis's pre-tile name (e.g. "time#0") survives inside
	// tileSchedule's Eqs/Exists as the quantified original index, tying
	// the new tile+point equation to whatever equation already defines
	// that axis. Since finalNames reuses the very same "time#N" spelling
	// for the new output tuple, that quantified name needs renaming too,
	// to something distinct from every other name in play.
	for i, s := range sizes {
		if s <= 1 {
			continue
		}
		rename[tree.TimeDims[i]] = fmt.Sprintf("orig#%d", i)
	}

	newStmts := make([]islx.StmtSchedule, len(tree.Stmts))
	for i, st := range tree.Stmts {
		sched, err := tileSchedule(st.Schedule, tree.TimeDims, sizes)
		if err != nil {
			return nil, err
		}
		newStmts[i] = islx.StmtSchedule{
			Name:           st.Name,
			Domain:         st.Domain,
			Schedule:       sched.Rename(rename),
			IterForTimeDim: projectIterNames(st.IterForTimeDim, tree.TimeDims, sizes),
		}
	}
	return &islx.ScheduleTree{Params: tree.Params, Stmts: newStmts, TimeDims: finalNames, Steps: steps}, nil
}

// positionalNames renames a band's internal tile#/point# dimension names
// back into the shared "time#0".."time#(T-1)" convention cgen's cIdent
// already knows how to strip, in the tileDims, remainder, pointDims
// order spec.md §8's S6 expects (tile axes outermost, any untiled axis
// between the band and its points, point axes innermost). It also
// returns the per-position Steps: the tile size at a tile axis's final
// position, 1 everywhere else.
func positionalNames(tileDims, remainder, pointDims []string, sizes []int) ([]string, []int64) {
	ordered := append(append(append([]string{}, tileDims...), remainder...), pointDims...)
	names := make([]string, len(ordered))
	steps := make([]int64, len(ordered))
	for i := range ordered {
		names[i] = fmt.Sprintf("time#%d", i)
	}
	for i := range tileDims {
		steps[i] = int64(bandSizes(sizes)[i])
	}
	return names, steps
}

// bandSizes returns the sizes greater than 1, in order — the sizes that
// actually produced a tile dimension in bandDims.
func bandSizes(sizes []int) []int {
	var out []int
	for _, s := range sizes {
		if s > 1 {
			out = append(out, s)
		}
	}
	return out
}

func bandDims(timeDims []string, sizes []int) (tileDims, pointDims []string) {
	for i, s := range sizes {
		if s <= 1 {
			continue
		}
		tileDims = append(tileDims, fmt.Sprintf("tile#%d", i))
		pointDims = append(pointDims, fmt.Sprintf("point#%d", i))
	}
	return tileDims, pointDims
}

// remainderDims collects, in original axis order, every time dimension
// that bandDims leaves untiled: a band axis with size <= 1 (a no-op,
// left exactly as it was) as well as every axis past len(sizes). These
// pass straight through a tiling pass unchanged — no new equation, no
// renamed existential, just carried into the remainder group between
// the tile dims and the point dims.
func remainderDims(timeDims []string, sizes []int) []string {
	var out []string
	for i, d := range timeDims {
		if i < len(sizes) && sizes[i] > 1 {
			continue
		}
		out = append(out, d)
	}
	return out
}

// tileSchedule splits sched's leading len(sizes) output
// dimensions into tile and point dimensions using isl's origin-coordinate
// convention: a tile dimension's runtime value is the tile's starting
// offset (0, s, 2s, ...) rather than a block count, so the original
// index is recovered as the plain sum tile+point (spec.md §4.6's strip
// mine, as islx.SolveForInDims later reconstructs for the AST leaf).
// Untiled axes (size <= 1) and axes past len(sizes) pass through
// unchanged into the remainder group.
func tileSchedule(sched *islx.BasicMap, timeDims []string, sizes []int) (*islx.BasicMap, error) {
	exists := append([]string{}, sched.Exists...)
	eqs := append([]islx.LinExpr{}, sched.Eqs...)
	var ineqs []islx.LinExpr
	ineqs = append(ineqs, sched.Ineqs...)

	tileDims, pointDims := bandDims(timeDims, sizes)
	remainder := remainderDims(timeDims, sizes)
	newOut := append(append(append([]string{}, tileDims...), remainder...), pointDims...)

	ti, pi := 0, 0
	for i, s := range sizes {
		orig := timeDims[i]
		if s <= 1 {
			continue
		}
		q := tileDims[ti]
		r := pointDims[pi]
		ti++
		pi++
		exists = append(exists, orig)
		eqs = append(eqs, islx.LinExpr{Coeffs: map[string]int64{orig: 1, q: -1, r: -1}})
		ineqs = append(ineqs, islx.LinExpr{Coeffs: map[string]int64{q: 1}})
		ineqs = append(ineqs, islx.LinExpr{Coeffs: map[string]int64{r: 1}})
		ineqs = append(ineqs, islx.LinExpr{Coeffs: map[string]int64{r: -1}, Const: int64(s - 1)})
	}
	return &islx.BasicMap{
		Params:  sched.Params,
		InDims:  sched.InDims,
		OutDims: newOut,
		Exists:  exists,
		Ineqs:   ineqs,
		Eqs:     eqs,
	}, nil
}

// projectIterNames carries a statement's time-dim-to-iterator labels
// across the dimension reshuffle in tileDims/remainder/pointDims order.
// Tile dims carry no single source iterator (their runtime value is a
// tile origin, not one original axis's value); astgen no longer relies
// on this for point reconstruction (it solves the schedule's equalities
// directly), but the label is kept sensible for any other IterForTimeDim
// consumer that runs before tiling, such as compile.go's tileSizes.
func projectIterNames(orig, oldTime []string, sizes []int) []string {
	tileDims, _ := bandDims(oldTime, sizes)
	out := make([]string, 0, len(tileDims)+len(oldTime))
	for range tileDims {
		out = append(out, "")
	}
	for i := range oldTime {
		if i < len(sizes) && sizes[i] > 1 {
			continue
		}
		out = append(out, orig[i])
	}
	for i, s := range sizes {
		if s <= 1 {
			continue
		}
		out = append(out, orig[i])
	}
	return out
}

// checkLegal rejects any tile size vector under which a real
// dependence's distance, projected onto the tiled band, would go
// negative in any tiled axis — the rectangular-tiling legality
// condition spec.md §4.6 requires.
func checkLegal(tree *islx.ScheduleTree, sizes []int, hazards []deps.Dependence) error {
	for _, h := range hazards {
		for _, piece := range h.Relation.Pieces {
			delta, err := islx.Deltas(bandRestriction(piece, tree, sizes))
			if err != nil {
				return err
			}
			if delta == nil {
				continue
			}
			for i, s := range sizes {
				if s <= 1 {
					continue
				}
				neg := &islx.BasicSet{
					Params: delta.Params,
					Dims:   delta.Dims,
					Exists: delta.Exists,
					Ineqs:  append(append([]islx.LinExpr{}, delta.Ineqs...), negDeltaBound(delta.Dims[i])),
					Eqs:    delta.Eqs,
				}
				if !neg.IsEmpty() {
					return perr.IllegalTilingError(tree.TimeDims[:len(sizes)],
						fmt.Sprintf("tiling axis %d would execute a negative-distance dependence out of order", i))
				}
			}
		}
	}
	return nil
}

func negDeltaBound(dim string) islx.LinExpr {
	// -(d) - 1 >= 0  <=>  d <= -1  <=>  d < 0
	return islx.LinExpr{Coeffs: map[string]int64{dim: -1}, Const: -1}
}

// AxisNonNegative reports whether tree's axis-th time dimension can be
// proven never to carry a negative dependence distance, for every one
// of hazards — the same validity condition checkLegal enforces for an
// actual tile size vector, exposed here as a query so internal/scheduler
// can score a candidate schedule by how many of its leading axes would
// survive a subsequent tiling pass, before any tiling is attempted. The
// dummy band length (axis+1, values unused) only selects how many
// leading output dimensions bandRestriction exposes; bandOnly never
// reads a size's magnitude, only the band's length.
func AxisNonNegative(tree *islx.ScheduleTree, axis int, hazards []deps.Dependence) (bool, error) {
	sizes := make([]int, axis+1)
	for i := range sizes {
		sizes[i] = 2
	}
	for _, h := range hazards {
		for _, piece := range h.Relation.Pieces {
			delta, err := islx.Deltas(bandRestriction(piece, tree, sizes))
			if err != nil {
				return false, err
			}
			if delta == nil {
				continue
			}
			neg := &islx.BasicSet{
				Params: delta.Params,
				Dims:   delta.Dims,
				Exists: delta.Exists,
				Ineqs:  append(append([]islx.LinExpr{}, delta.Ineqs...), negDeltaBound(delta.Dims[axis])),
				Eqs:    delta.Eqs,
			}
			if !neg.IsEmpty() {
				return false, nil
			}
		}
	}
	return true, nil
}

// bandRestriction builds {src_band -> dst_band}, arity len(sizes) on
// both sides, from a dependence piece (src$domain -> dst$domain) by
// composing it through both endpoints' schedules with every time
// dimension past the band projected away existentially.
func bandRestriction(piece *islx.BasicMap, tree *islx.ScheduleTree, sizes []int) *islx.BasicMap {
	var srcSched, dstSched *islx.BasicMap
	for _, st := range tree.Stmts {
		if sameDims(st.Schedule.InDims, stripPrefix(piece.InDims, "src$")) {
			srcSched = st.Schedule
		}
		if sameDims(st.Schedule.InDims, stripPrefix(piece.OutDims, "dst$")) {
			dstSched = st.Schedule
		}
	}
	if srcSched == nil || dstSched == nil {
		return nil
	}
	srcBand := bandOnly(srcSched, sizes, "src$", "s")
	dstBand := bandOnly(dstSched, sizes, "dst$", "d")

	left, err := islx.Compose(piece, dstBand)
	if err != nil {
		return nil
	}
	full, err := islx.Compose(srcBand.Reverse(), left)
	if err != nil {
		return nil
	}
	return full
}

// bandOnly renames sched's domain to domainPrefix+dim (matching the
// dependence piece's src$/dst$ convention) and restricts its exposed
// output tuple to the leading len(sizes) time dims, pushing every
// later time dim into Exists.
func bandOnly(sched *islx.BasicMap, sizes []int, domainPrefix, timePrefix string) *islx.BasicMap {
	rename := map[string]string{}
	for _, d := range sched.InDims {
		rename[d] = domainPrefix + d
	}
	for _, d := range sched.OutDims {
		rename[d] = timePrefix + d
	}
	renamed := sched.Rename(rename)
	bandDims := make([]string, len(sizes))
	for i := 0; i < len(sizes); i++ {
		bandDims[i] = timePrefix + sched.OutDims[i]
	}
	exists := append([]string{}, renamed.Exists...)
	for _, d := range sched.OutDims[len(sizes):] {
		exists = append(exists, timePrefix+d)
	}
	return &islx.BasicMap{
		Params:  renamed.Params,
		InDims:  renamed.InDims,
		OutDims: bandDims,
		Exists:  exists,
		Ineqs:   renamed.Ineqs,
		Eqs:     renamed.Eqs,
	}
}

func stripPrefix(names []string, prefix string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if len(n) > len(prefix) && n[:len(prefix)] == prefix {
			out[i] = n[len(prefix):]
		} else {
			out[i] = n
		}
	}
	return out
}

func sameDims(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

