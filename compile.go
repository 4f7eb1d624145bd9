// Package loopoly implements spec.md's polyhedral loop compiler: an
// IR model describing affine tensor loop nests (internal/ir), and the
// nine-stage pipeline — affine serialization, domain/schedule
// construction, access extraction, dependence analysis, scheduling,
// tiling, AST lowering, and C emission — that turns one or several
// PrimFuncs into a single C function (spec.md §2, §6).
package loopoly

import (
	"loopoly/internal/cgen"
	"loopoly/internal/ir"
	"loopoly/internal/islx"
	"loopoly/internal/lower"
	"loopoly/internal/perr"
	"loopoly/internal/scheduler"
	"loopoly/internal/tiler"
)

// CompileTarget wraps the single PrimFunc or ordered PrimFunc list
// Compile accepts (spec.md §6). Build one with Single or Multi; the
// zero value is invalid.
type CompileTarget struct {
	single *ir.PrimFunc
	multi  []*ir.PrimFunc
}

// Single targets one PrimFunc.
func Single(f *ir.PrimFunc) CompileTarget { return CompileTarget{single: f} }

// Multi targets an ordered, non-empty list of PrimFuncs to fuse.
func Multi(fs []*ir.PrimFunc) CompileTarget { return CompileTarget{multi: fs} }

func (t CompileTarget) isMulti() bool { return t.multi != nil }

// TileSpec names one band axis and its strip-mining size, keyed by the
// iterator name that axis carries in its owning Compute's Domain
// (spec.md §6's `tiles=[(axis, size), ...]`).
type TileSpec struct {
	Axis string
	Size int
}

type options struct {
	explicitSchedule *islx.ScheduleTree
	optimize         bool
	tiles            []TileSpec
}

// Option configures a Compile call.
type Option func(*options)

// WithSchedule supplies an explicit ScheduleTree, which replaces the
// schedule WithOptimize would select (spec.md §6: "the explicit
// schedule wins"). WithTiles still applies: its tiles are laid over
// the explicit schedule. Only valid for a Single target; Compile
// rejects it for a Multi target.
func WithSchedule(tree *islx.ScheduleTree) Option {
	return func(o *options) { o.explicitSchedule = tree }
}

// WithOptimize requests scheduler.Automatic's interchange search in
// place of the identity schedule.
func WithOptimize() Option {
	return func(o *options) { o.optimize = true }
}

// WithTiles requests band tiling of the chosen schedule's leading time
// dimensions, sized per named axis. Only valid for a Single target;
// Compile rejects it for a Multi target.
func WithTiles(specs ...TileSpec) Option {
	return func(o *options) { o.tiles = specs }
}

// Compile runs the nine-stage pipeline over target and returns the
// rendered C source. Per spec.md §6: an empty Multi list is an error;
// WithSchedule and WithTiles are rejected for a Multi target.
func Compile(target CompileTarget, opts ...Option) (string, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if target.isMulti() {
		if len(target.multi) == 0 {
			return "", perr.Malformed("compile", "PrimFunc list is empty")
		}
		if o.explicitSchedule != nil {
			return "", perr.Malformed("compile", "an explicit schedule is rejected for a PrimFunc list")
		}
		if len(o.tiles) > 0 {
			return "", perr.Malformed("compile", "tiling is rejected for a PrimFunc list")
		}
		for _, f := range target.multi {
			if err := f.Check(); err != nil {
				return "", perr.Malformed(f.Name, err.Error())
			}
		}
		return compileFused(target.multi)
	}

	f := target.single
	if f == nil {
		return "", perr.Malformed("compile", "no PrimFunc given")
	}
	if err := f.Check(); err != nil {
		return "", perr.Malformed(f.Name, err.Error())
	}
	return compileSingle(f, o)
}

func compileFused(funcs []*ir.PrimFunc) (string, error) {
	tree, err := scheduler.Fuse(funcs)
	if err != nil {
		return "", err
	}
	return renderTree(mergedFunc(funcs), tree)
}

// mergedFunc stitches together a param list and a combined PrimFunc
// view sufficient for internal/lower to resolve every fused
// statement's originating Compute — Fuse renames each Compute into
// the fused tuple names, so lower needs to find them under those same
// names.
func mergedFunc(funcs []*ir.PrimFunc) *ir.PrimFunc {
	var params []*ir.Tensor
	seen := map[string]bool{}
	var computes []*ir.Compute
	for fi, f := range funcs {
		for _, p := range f.Params {
			if !seen[p.Name] {
				seen[p.Name] = true
				params = append(params, p)
			}
		}
		for _, c := range f.Computes {
			computes = append(computes, renamedCompute(fi, f.Name, c))
		}
	}
	return &ir.PrimFunc{Name: "fused", Params: params, Computes: computes}
}

func renamedCompute(fusedIndex int, funcName string, c *ir.Compute) *ir.Compute {
	return ir.NewCompute(scheduler.FusedName(fusedIndex, funcName, c.Name), c.Domain, c.Body)
}

func compileSingle(f *ir.PrimFunc, o options) (string, error) {
	tree := o.explicitSchedule
	var err error
	if tree == nil {
		if o.optimize {
			tree, err = scheduler.Automatic(f)
		} else {
			tree, err = scheduler.Identity(f)
		}
		if err != nil {
			return "", err
		}
	}

	if len(o.tiles) > 0 {
		sizes, terr := tileSizes(tree, o.tiles)
		if terr != nil {
			return "", terr
		}
		tree, err = tiler.Tile(f, tree, sizes)
		if err != nil {
			return "", err
		}
	}

	return renderTree(f, tree)
}

// tileSizes maps the caller's axis-name sizes onto tiler.Tile's
// positional size vector, using the first statement's
// IterForTimeDim labels (valid since WithTiles is single-PrimFunc
// only, so there is exactly one statement's axis naming to consult).
// Axes named by tiles must appear among the leading named time
// dimensions; axes not mentioned default to size 1 (the documented
// no-op per spec.md §4.6).
func tileSizes(tree *islx.ScheduleTree, tiles []TileSpec) ([]int, error) {
	if len(tree.Stmts) == 0 {
		return nil, perr.Malformed("tile", "schedule tree has no statements")
	}
	labels := tree.Stmts[0].IterForTimeDim
	byAxis := make(map[string]int, len(tiles))
	for _, t := range tiles {
		byAxis[t.Axis] = t.Size
	}
	lastNamed := 0
	for i, l := range labels {
		if l != "" {
			lastNamed = i + 1
		}
	}
	sizes := make([]int, lastNamed)
	for i := 0; i < lastNamed; i++ {
		if s, ok := byAxis[labels[i]]; ok {
			sizes[i] = s
		} else {
			sizes[i] = 1
		}
	}
	for axis := range byAxis {
		found := false
		for _, l := range labels {
			if l == axis {
				found = true
				break
			}
		}
		if !found {
			return nil, perr.Malformed(axis, "tile axis does not name an iterator of this schedule's leading time dimensions")
		}
	}
	return sizes, nil
}

func renderTree(f *ir.PrimFunc, tree *islx.ScheduleTree) (string, error) {
	root, err := islx.Generate(tree)
	if err != nil {
		return "", err
	}
	lowered, err := lower.Lower(f, root)
	if err != nil {
		return "", err
	}
	return cgen.Emit(f, lowered)
}
