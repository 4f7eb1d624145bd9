// Package dsbuild turns a Compute's declarative Domain into a
// polyhedral set, and a PrimFunc's Computes into a shared
// ScheduleTree ready for internal/scheduler to transform and islx to
// generate an AST from (spec.md §4.2).
package dsbuild

import (
	"fmt"

	"loopoly/internal/affine"
	"loopoly/internal/ir"
	"loopoly/internal/islx"
	"loopoly/internal/perr"
)

// BuildDomain renders a Compute's Domain through internal/affine into
// polyhedral set text, parses it, and namespaces every iterator
// dimension as "computeName$iterName" so it can never collide with
// another statement's dimensions once schedules and access relations
// are composed together.
func BuildDomain(c *ir.Compute) (*islx.BasicSet, error) {
	iterNames := c.Domain.IteratorNames()
	paramsStr, tuple, constraintsStr, err := affine.Header(c.Domain.Params, c.Name, iterNames, c.Domain.Constraints)
	if err != nil {
		return nil, err
	}
	text := setText(paramsStr, tuple, constraintsStr)
	us, err := islx.ParseSet(text)
	if err != nil {
		return nil, err
	}
	if len(us.Pieces) != 1 {
		return nil, perr.Unsupported(c.Name, "domain constraints containing a top-level disjunction are not supported as a single statement domain")
	}
	names := make(map[string]string, len(iterNames))
	for _, n := range iterNames {
		names[n] = NamespacedDim(c.Name, n)
	}
	return us.Pieces[0].Rename(names), nil
}

// NamespacedDim is the "tupleName$dimName" scheme spec.md §6 defines
// for every domain and schedule dimension islx ever sees.
func NamespacedDim(tuple, dim string) string { return tuple + "$" + dim }

func setText(paramsStr, tuple, constraintsStr string) string {
	if paramsStr == "[]" {
		return fmt.Sprintf("{ %s : %s }", tuple, constraintsStr)
	}
	return fmt.Sprintf("%s -> { %s : %s }", paramsStr, tuple, constraintsStr)
}

// BuildScheduleTree builds the identity ScheduleTree for every Compute
// in f: each statement's iterators map, in PrimFunc.Schedule's
// declared order (or declaration order when the PrimFunc carries no
// preference), onto a shared "time#0".."time#(T-1)" output tuple,
// zero-padded to the longest statement's iterator count. A trailing
// statement-tag dimension is appended whenever f has more than one
// Compute, fixed per statement to that statement's index, so two
// statements sharing a schedule prefix still compare unambiguously at
// the first dimension where one of them runs out of iterators.
// internal/scheduler's Automatic and Fuse modes start from this tree
// and replace individual statements' Schedule maps; the dimension
// names and padding convention stay identical.
func BuildScheduleTree(f *ir.PrimFunc) (*islx.ScheduleTree, error) {
	orders := make([][]string, len(f.Computes))
	maxLen := 0
	for i, c := range f.Computes {
		order := orderFor(f, c)
		orders[i] = order
		if len(order) > maxLen {
			maxLen = len(order)
		}
	}
	tagged := len(f.Computes) > 1
	totalT := maxLen
	if tagged {
		totalT++
	}
	timeDims := make([]string, totalT)
	for k := range timeDims {
		timeDims[k] = fmt.Sprintf("time#%d", k)
	}

	var params []string
	seenParams := map[string]bool{}
	stmts := make([]islx.StmtSchedule, 0, len(f.Computes))
	for i, c := range f.Computes {
		dom, err := BuildDomain(c)
		if err != nil {
			return nil, err
		}
		for _, p := range dom.Params {
			if !seenParams[p] {
				seenParams[p] = true
				params = append(params, p)
			}
		}
		order := orders[i]
		iterForTimeDim := make([]string, totalT)
		var eqs []islx.LinExpr
		for k, iterName := range order {
			dim := NamespacedDim(c.Name, iterName)
			eqs = append(eqs, islx.LinExpr{Coeffs: map[string]int64{timeDims[k]: 1, dim: -1}})
			iterForTimeDim[k] = iterName
		}
		for k := len(order); k < maxLen; k++ {
			eqs = append(eqs, islx.LinExpr{Coeffs: map[string]int64{timeDims[k]: 1}})
		}
		if tagged {
			eqs = append(eqs, islx.LinExpr{Coeffs: map[string]int64{timeDims[maxLen]: 1}, Const: -int64(i)})
		}
		sched := &islx.BasicMap{
			Params:  dom.Params,
			InDims:  dom.Dims,
			OutDims: timeDims,
			Eqs:     eqs,
		}
		stmts = append(stmts, islx.StmtSchedule{
			Name:           c.Name,
			Domain:         dom,
			Schedule:       sched,
			IterForTimeDim: iterForTimeDim,
		})
	}
	return &islx.ScheduleTree{Params: params, Stmts: stmts, TimeDims: timeDims}, nil
}

func orderFor(f *ir.PrimFunc, c *ir.Compute) []string {
	names := c.Domain.IteratorNames()
	if len(f.Schedule) == 0 || !f.Schedule.Sharable(names) {
		return names
	}
	return f.Schedule.Project(names)
}
