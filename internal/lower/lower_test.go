package lower_test

import (
	"testing"

	"loopoly/internal/cgen"
	"loopoly/internal/ir"
	"loopoly/internal/lower"
)

func TestLowerSubstitutesIteratorIntoStore(t *testing.T) {
	a := ir.NewTensor("A", ir.IntLit(10))
	b := ir.NewTensor("B", ir.IntLit(10))
	c := ir.NewTensor("C", ir.IntLit(10))
	body := ir.StoreStmt(
		ir.Access{Tensor: c, Index: []*ir.Expr{ir.Var("i")}},
		ir.Bin(ir.Add, ir.LoadExpr(a, ir.Var("i")), ir.LoadExpr(b, ir.Var("i"))),
		nil,
	)
	f := &ir.PrimFunc{
		Name:     "add_func",
		Params:   []*ir.Tensor{a, b, c},
		Computes: []*ir.Compute{ir.NewCompute("S", ir.Domain{Iterators: []ir.Iterator{{Name: "i", Kind: ir.Spatial}}}, body)},
	}

	root := ir.ForLoopNode("time#0", ir.NewAstVal(0), ir.NewAstVal(9),
		ir.UserStmtNode("S", map[string]*ir.AstExpr{"i": ir.NewAstId("time#0")}))

	lowered, err := lower.Lower(f, root)
	if err != nil {
		t.Fatalf("Lower returned error: %v", err)
	}
	out, err := cgen.Emit(f, lowered)
	if err != nil {
		t.Fatalf("Emit returned error: %v", err)
	}
	want := "void add_func(int *A, int *B, int *C) {\n" +
		"    for (int c0 = 0; c0 <= 9; c0++) {\n" +
		"        C[c0] = A[c0] + B[c0];\n" +
		"    }\n" +
		"}\n"
	if out != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}
}

func TestLowerBuildsReduceInitGuardFromReduceIterator(t *testing.T) {
	x := ir.NewTensor("x", ir.IntLit(5), ir.IntLit(3))
	acc := ir.NewTensor("acc", ir.IntLit(5))
	body := ir.ReduceStoreStmt(
		ir.Sum,
		ir.Access{Tensor: acc, Index: []*ir.Expr{ir.Var("i")}},
		ir.LoadExpr(x, ir.Var("i"), ir.Var("k")),
		ir.IntLit(0),
	)
	domain := ir.Domain{Iterators: []ir.Iterator{
		{Name: "i", Kind: ir.Spatial},
		{Name: "k", Kind: ir.Reduce},
	}}
	f := &ir.PrimFunc{
		Name:     "reduce_func",
		Params:   []*ir.Tensor{x, acc},
		Computes: []*ir.Compute{ir.NewCompute("S", domain, body)},
	}

	root := ir.ForLoopNode("time#0", ir.NewAstVal(0), ir.NewAstVal(4),
		ir.ForLoopNode("time#1", ir.NewAstVal(0), ir.NewAstVal(2),
			ir.UserStmtNode("S", map[string]*ir.AstExpr{
				"i": ir.NewAstId("time#0"),
				"k": ir.NewAstId("time#1"),
			})))

	lowered, err := lower.Lower(f, root)
	if err != nil {
		t.Fatalf("Lower returned error: %v", err)
	}
	out, err := cgen.Emit(f, lowered)
	if err != nil {
		t.Fatalf("Emit returned error: %v", err)
	}
	want := "void reduce_func(int *x, int *acc) {\n" +
		"    for (int c0 = 0; c0 <= 4; c0++) {\n" +
		"        for (int c1 = 0; c1 <= 2; c1++) {\n" +
		"            if (c1 == 0) acc[c0] = 0;\n" +
		"            acc[c0] += x[(c0) * 3 + c1];\n" +
		"        }\n" +
		"    }\n" +
		"}\n"
	if out != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out, want)
	}
}
