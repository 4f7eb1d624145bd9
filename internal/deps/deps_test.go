package deps

import (
	"testing"

	"loopoly/internal/access"
	"loopoly/internal/dsbuild"
	"loopoly/internal/ir"
)

// buildProducerConsumerFunc builds a two-statement PrimFunc where S1
// writes C[i] and S2 reads C[i] into D[i], in declaration order. Since
// a multi-Compute PrimFunc's shared schedule tags each statement by
// its declaration index (internal/dsbuild.BuildScheduleTree), S1 is
// guaranteed to run strictly before S2 at every shared iteration point.
func buildProducerConsumerFunc() *ir.PrimFunc {
	a := ir.NewTensor("A", ir.IntLit(10))
	c := ir.NewTensor("C", ir.IntLit(10))
	d := ir.NewTensor("D", ir.IntLit(10))
	dom := ir.Domain{Iterators: []ir.Iterator{{Name: "i", Kind: ir.Spatial}}}

	s1 := ir.NewCompute("S1", dom,
		ir.StoreStmt(ir.Access{Tensor: c, Index: []*ir.Expr{ir.Var("i")}}, ir.LoadExpr(a, ir.Var("i")), nil))
	s2 := ir.NewCompute("S2", dom,
		ir.StoreStmt(ir.Access{Tensor: d, Index: []*ir.Expr{ir.Var("i")}},
			ir.Bin(ir.Add, ir.LoadExpr(c, ir.Var("i")), ir.IntLit(1)), nil))

	return &ir.PrimFunc{
		Name:     "f",
		Params:   []*ir.Tensor{a, c, d},
		Computes: []*ir.Compute{s1, s2},
	}
}

func TestAnalyzeFindsRawAcrossProducerAndConsumer(t *testing.T) {
	f := buildProducerConsumerFunc()
	tree, err := dsbuild.BuildScheduleTree(f)
	if err != nil {
		t.Fatalf("BuildScheduleTree returned error: %v", err)
	}
	refs, err := access.Extract(f)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	deps, err := Analyze(tree, refs)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	var found bool
	for _, d := range deps {
		if d.Tensor != "C" {
			continue
		}
		if d.Kind != RAW {
			t.Fatalf("expected the C dependence to be RAW, got %s", d.Kind)
		}
		if d.Earlier.Compute != "S1" || d.Later.Compute != "S2" {
			t.Fatalf("expected the RAW dependence to run S1 -> S2, got %s -> %s", d.Earlier.Compute, d.Later.Compute)
		}
		if d.Relation == nil || d.Relation.IsEmpty() {
			t.Fatalf("expected a non-empty dependence relation")
		}
		found = true
	}
	if !found {
		t.Fatalf("expected a RAW dependence on C between S1 and S2, got %+v", deps)
	}

	for _, d := range deps {
		if d.Tensor == "C" && d.Earlier.Compute == "S2" && d.Later.Compute == "S1" {
			t.Fatalf("did not expect a dependence running S2 -> S1, C is never written after S1")
		}
	}
}

func TestAnalyzeReportsNoDependenceForDisjointTensors(t *testing.T) {
	a := ir.NewTensor("A", ir.IntLit(10))
	b := ir.NewTensor("B", ir.IntLit(10))
	dom := ir.Domain{Iterators: []ir.Iterator{{Name: "i", Kind: ir.Spatial}}}
	s1 := ir.NewCompute("S1", dom, ir.StoreStmt(ir.Access{Tensor: a, Index: []*ir.Expr{ir.Var("i")}}, ir.IntLit(1), nil))
	s2 := ir.NewCompute("S2", dom, ir.StoreStmt(ir.Access{Tensor: b, Index: []*ir.Expr{ir.Var("i")}}, ir.IntLit(2), nil))
	f := &ir.PrimFunc{Name: "f", Params: []*ir.Tensor{a, b}, Computes: []*ir.Compute{s1, s2}}

	tree, err := dsbuild.BuildScheduleTree(f)
	if err != nil {
		t.Fatalf("BuildScheduleTree returned error: %v", err)
	}
	refs, err := access.Extract(f)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	deps, err := Analyze(tree, refs)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(deps) != 0 {
		t.Fatalf("expected no dependences between disjoint tensors, got %+v", deps)
	}
}
