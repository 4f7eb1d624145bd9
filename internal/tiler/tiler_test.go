package tiler

import (
	"testing"

	"loopoly/internal/dsbuild"
	"loopoly/internal/ir"
)

func buildVecFunc() *ir.PrimFunc {
	t := ir.NewTensor("T", ir.IntLit(10))
	domain := ir.Domain{
		Iterators: []ir.Iterator{{Name: "i", Kind: ir.Spatial}},
		Constraints: []*ir.Constraint{
			ir.Cmp(ir.GE, ir.Var("i"), ir.IntLit(0)),
			ir.Cmp(ir.LT, ir.Var("i"), ir.IntLit(10)),
		},
	}
	body := ir.StoreStmt(ir.Access{Tensor: t, Index: []*ir.Expr{ir.Var("i")}}, ir.IntLit(1), nil)
	return &ir.PrimFunc{
		Name:     "f",
		Params:   []*ir.Tensor{t},
		Computes: []*ir.Compute{ir.NewCompute("S", domain, body)},
	}
}

func TestTileSizeOneIsNoOp(t *testing.T) {
	f := buildVecFunc()
	tree, err := dsbuild.BuildScheduleTree(f)
	if err != nil {
		t.Fatalf("BuildScheduleTree returned error: %v", err)
	}
	tiled, err := Tile(f, tree, []int{1})
	if err != nil {
		t.Fatalf("Tile returned error: %v", err)
	}
	if len(tiled.TimeDims) != 1 || tiled.TimeDims[0] != "time#0" {
		t.Fatalf("a size-1 tile should leave the time dimension untouched, got %v", tiled.TimeDims)
	}
}

func TestTileSplitsBandIntoTileAndPointDims(t *testing.T) {
	f := buildVecFunc()
	tree, err := dsbuild.BuildScheduleTree(f)
	if err != nil {
		t.Fatalf("BuildScheduleTree returned error: %v", err)
	}
	tiled, err := Tile(f, tree, []int{5})
	if err != nil {
		t.Fatalf("Tile returned error: %v", err)
	}
	// Tile and point dims are renamed positionally back into the shared
	// "time#N" convention cIdent already knows how to strip; the tile
	// axis's step carries the tile size, the point axis's stays 1.
	want := []string{"time#0", "time#1"}
	if len(tiled.TimeDims) != len(want) {
		t.Fatalf("TimeDims = %v, want %v", tiled.TimeDims, want)
	}
	for i, d := range want {
		if tiled.TimeDims[i] != d {
			t.Fatalf("TimeDims[%d] = %q, want %q", i, tiled.TimeDims[i], d)
		}
	}
	if got := tiled.StepFor(0); got != 5 {
		t.Fatalf("tile axis step = %d, want 5", got)
	}
	if got := tiled.StepFor(1); got != 1 {
		t.Fatalf("point axis step = %d, want 1", got)
	}
}

func TestTileRejectsOversizedSizeVector(t *testing.T) {
	f := buildVecFunc()
	tree, err := dsbuild.BuildScheduleTree(f)
	if err != nil {
		t.Fatalf("BuildScheduleTree returned error: %v", err)
	}
	if _, err := Tile(f, tree, []int{5, 2}); err == nil {
		t.Fatalf("expected an error when the size vector is longer than the time tuple")
	}
}
