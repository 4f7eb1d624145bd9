package islx

import (
	"strings"

	"loopoly/internal/ir"
	"loopoly/internal/perr"
)

// Generate builds the polyhedral AST for a ScheduleTree (spec.md
// §4.7's input): a recursive scan over the shared time dimensions,
// extracting a lower and upper bound per dimension from each active
// statement's time-image and left-folding multiple candidates with
// max/min, exactly the shape spec.md §4.7 describes for the AST
// Lowerer to consume. Any residual constraint a dimension's simple
// bound could not absorb survives to the innermost level as a Guard.
func Generate(tree *ScheduleTree) (*ir.AstNode, error) {
	timeSets := make([]*BasicSet, len(tree.Stmts))
	for i, st := range tree.Stmts {
		img, err := ApplyRange(st.Schedule, st.Domain)
		if err != nil {
			return nil, err
		}
		timeSets[i] = img
	}
	active := make([]int, len(tree.Stmts))
	for i := range active {
		active[i] = i
	}
	g := &generator{tree: tree, timeSets: timeSets}
	return g.scan(0, active, make([][]LinExpr, len(tree.Stmts)))
}

type generator struct {
	tree     *ScheduleTree
	timeSets []*BasicSet
}

func keepSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// scan emits the node for time dimension `level` given the statements
// still active (every statement is active at every level in this
// engine — pruning disjoint statement ranges into separate ForLoops is
// an isl AST-gen refinement this engine does not attempt; a correct
// but sometimes coarser nest still results, with the per-statement
// Guard catching any shape that prefix-sharing alone can't express).
func (g *generator) scan(level int, active []int, levelIneqsPerStmt [][]LinExpr) (*ir.AstNode, error) {
	if level == len(g.tree.TimeDims) {
		return g.leaf(active, levelIneqsPerStmt)
	}
	dim := g.tree.TimeDims[level]
	keep := keepSet(append(append([]string{}, g.tree.TimeDims[:level+1]...), g.tree.Params...)...)

	infos := make([]stmtBound, len(active))
	for i, idx := range active {
		reduced := reduceToVars(g.timeSets[idx].Ineqs, g.timeSets[idx].Eqs, keep)
		info := stmtBound{idx: idx}
		var lowerParts, upperParts []*ir.AstExpr
		for _, e := range reduced {
			switch e.coeffOf(dim) {
			case 1:
				info.ownLower = append(info.ownLower, e)
				lowerParts = append(lowerParts, linExprToAstExpr(withoutVar(e, dim).neg()))
			case -1:
				info.ownUpper = append(info.ownUpper, e)
				upperParts = append(upperParts, linExprToAstExpr(withoutVar(e, dim)))
			case 0:
				// Not a bound candidate at this dimension. Left out of
				// info entirely: it either has a nonzero coefficient at
				// some other dimension (where it belongs, and is
				// judged there) or never does, in which case it
				// survives untouched to the leaf and becomes a
				// residual guard.
			default:
				return nil, perr.Polyhedral(dim, errNonUnitBound)
			}
		}
		if len(lowerParts) == 0 || len(upperParts) == 0 {
			return nil, perr.Polyhedral(dim, errNoBound)
		}
		// Each statement's own bound is the tightest of its own
		// candidate inequalities (the usual intersection fold).
		info.lower = foldExtreme(ir.BMax, lowerParts)
		info.upper = foldExtreme(ir.BMin, upperParts)
		infos[i] = info
	}

	var lowerCandidates, upperCandidates []*ir.AstExpr
	for _, info := range infos {
		lowerCandidates = append(lowerCandidates, info.lower)
		upperCandidates = append(upperCandidates, info.upper)
	}
	// The shared for loop must span every active statement's own
	// range — the union across statements, not the range every
	// statement happens to agree on — since a fused statement with a
	// narrower extent (spec.md §8 S5) still needs the wider loop to
	// exist; its own tighter bound survives below as a residual guard
	// instead of narrowing the loop itself.
	lower := foldExtreme(ir.BMin, lowerCandidates)
	upper := foldExtreme(ir.BMax, upperCandidates)

	nextLevelIneqs := make([][]LinExpr, len(g.timeSets))
	copy(nextLevelIneqs, levelIneqsPerStmt)
	for _, info := range infos {
		var used []LinExpr
		if astEqual(info.lower, lower) {
			used = append(used, info.ownLower...)
		}
		if astEqual(info.upper, upper) {
			used = append(used, info.ownUpper...)
		}
		nextLevelIneqs[info.idx] = append(append([]LinExpr{}, levelIneqsPerStmt[info.idx]...), used...)
	}

	body, err := g.scan(level+1, active, nextLevelIneqs)
	if err != nil {
		return nil, err
	}
	return ir.SteppedForLoopNode(dim, lower, upper, g.tree.StepFor(level), body), nil
}

// stmtBound is one active statement's own bound material at a single
// scan level: its raw lower/upper inequalities (kept separate so the
// ones that don't end up matching the shared loop's union bound can
// still surface as a residual guard at the leaf) and its own
// intersection-folded lower/upper expression.
type stmtBound struct {
	idx                int
	ownLower, ownUpper []LinExpr
	lower, upper       *ir.AstExpr
}

// astEqual is a structural equality check over the small AstExpr
// vocabulary a loop bound can take (ids, literals, and left-folded
// binary/unary/call combinations of them — never a load), used to
// decide whether a statement's own bound matches the shared loop's
// chosen union bound.
func astEqual(a, b *ir.AstExpr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ir.AstId:
		return a.Name == b.Name
	case ir.AstVal:
		return a.Val == b.Val
	case ir.AstFloat:
		return a.FloatVal == b.FloatVal
	case ir.AstUn:
		return a.UnOp == b.UnOp && astEqual(a.Operand, b.Operand)
	case ir.AstBin:
		return a.BinOp == b.BinOp && astEqual(a.Left, b.Left) && astEqual(a.Right, b.Right)
	case ir.AstCall:
		if a.Callee != b.Callee || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !astEqual(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func foldExtreme(op ir.BinOp, parts []*ir.AstExpr) *ir.AstExpr {
	if len(parts) == 1 {
		return parts[0]
	}
	if (op == ir.BMax || op == ir.BMin) && allLiteral(parts) {
		best := parts[0].Val
		for _, p := range parts[1:] {
			if (op == ir.BMax && p.Val > best) || (op == ir.BMin && p.Val < best) {
				best = p.Val
			}
		}
		return ir.NewAstVal(best)
	}
	return ir.FoldBinLeft(op, parts[0], parts[1:]...)
}

func allLiteral(parts []*ir.AstExpr) bool {
	for _, p := range parts {
		if p.Kind != ir.AstVal {
			return false
		}
	}
	return true
}

// iterNameOf strips a domain dimension's namespace prefix(es), returning
// the bare original iterator name. internal/dsbuild namespaces a
// statement's domain dims as "ComputeName$iter", and internal/scheduler's
// Fuse namespaces again on top of that ("Fused$ComputeName$iter"), so the
// iterator name is always what follows the LAST '$'.
func iterNameOf(dim string) string {
	if i := strings.LastIndex(dim, "$"); i >= 0 {
		return dim[i+1:]
	}
	return dim
}

// leaf emits the innermost Block of UserStmt nodes, wrapping each in
// a Guard when its statement's full constraint set still carries
// inequalities beyond the ones already spent on ForLoop bounds at
// shallower levels.
func (g *generator) leaf(active []int, levelIneqsPerStmt [][]LinExpr) (*ir.AstNode, error) {
	keep := keepSet(append(append([]string{}, g.tree.TimeDims...), g.tree.Params...)...)
	var children []*ir.AstNode
	for _, idx := range active {
		stmt := g.tree.Stmts[idx]
		full := reduceToVars(g.timeSets[idx].Ineqs, g.timeSets[idx].Eqs, keep)
		residual := subtractIneqs(full, levelIneqsPerStmt[idx])

		solved := SolveForInDims(stmt.Schedule)
		point := map[string]*ir.AstExpr{}
		for _, d := range stmt.Schedule.InDims {
			expr, ok := solved[d]
			if !ok {
				return nil, perr.Polyhedral(stmt.Name, errUnsolvedIndex)
			}
			point[iterNameOf(d)] = linExprToAstExpr(expr)
		}
		user := ir.UserStmtNode(stmt.Name, point)

		if len(residual) == 0 {
			children = append(children, user)
			continue
		}
		cond := ineqToCond(residual[0])
		for _, e := range residual[1:] {
			cond = ir.AndCond(cond, ineqToCond(e))
		}
		children = append(children, ir.GuardNode(cond, user))
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return ir.BlockNode(children...), nil
}

// subtractIneqs removes from full every element structurally equal to
// one in used (each consumed at most once).
func subtractIneqs(full, used []LinExpr) []LinExpr {
	consumed := make([]bool, len(used))
	var out []LinExpr
	for _, e := range full {
		matched := false
		for i, u := range used {
			if !consumed[i] && linExprEqual(e, u) {
				consumed[i] = true
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, e)
		}
	}
	return out
}

func linExprEqual(a, b LinExpr) bool {
	if a.Const != b.Const {
		return false
	}
	av, bv := a.vars(), b.vars()
	if len(av) != len(bv) {
		return false
	}
	for i := range av {
		if av[i] != bv[i] || a.coeffOf(av[i]) != b.coeffOf(bv[i]) {
			return false
		}
	}
	return true
}

// linExprToAstExpr renders a LinExpr (coefficients of +-1 or small
// integers) as a left-folded sum of its terms plus constant.
func linExprToAstExpr(e LinExpr) *ir.AstExpr {
	vars := e.vars()
	var parts []*ir.AstExpr
	for _, v := range vars {
		c := e.coeffOf(v)
		switch c {
		case 1:
			parts = append(parts, ir.NewAstId(v))
		case -1:
			parts = append(parts, ir.NewAstUn(ir.Neg, ir.NewAstId(v)))
		default:
			parts = append(parts, ir.NewAstBin(ir.Mul, ir.NewAstVal(c), ir.NewAstId(v)))
		}
	}
	if e.Const != 0 || len(parts) == 0 {
		parts = append(parts, ir.NewAstVal(e.Const))
	}
	return foldExtreme(ir.Add, parts)
}

// ineqToCond renders "e >= 0" as a guard condition, preferring the
// idiomatic "var <= const" shape when e is a single negated variable
// plus a constant (the common tile/skew-remainder guard shape).
func ineqToCond(e LinExpr) *ir.AstCond {
	vars := e.vars()
	if len(vars) == 1 && e.coeffOf(vars[0]) == -1 {
		return ir.CmpCond(ir.LE, ir.NewAstId(vars[0]), ir.NewAstVal(e.Const))
	}
	if len(vars) == 1 && e.coeffOf(vars[0]) == 1 {
		return ir.CmpCond(ir.GE, ir.NewAstId(vars[0]), ir.NewAstVal(-e.Const))
	}
	return ir.CmpCond(ir.GE, linExprToAstExpr(e), ir.NewAstVal(0))
}

var errNonUnitBound = simpleErr("schedule produced a non-unit coefficient on a time dimension; islx's bound extraction only supports unit-coefficient time dimensions")
var errNoBound = simpleErr("time dimension has no derivable lower or upper bound")
var errUnsolvedIndex = simpleErr("schedule equalities do not pin down one of the statement's original iterators")
