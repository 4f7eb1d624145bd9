package scheduler

import (
	"strings"
	"testing"

	"loopoly/internal/ir"
)

func buildSingleIterFunc(name, computeName, iter string) *ir.PrimFunc {
	t := ir.NewTensor("T", ir.IntLit(10))
	domain := ir.Domain{
		Iterators: []ir.Iterator{{Name: iter, Kind: ir.Spatial}},
		Constraints: []*ir.Constraint{
			ir.Cmp(ir.GE, ir.Var(iter), ir.IntLit(0)),
			ir.Cmp(ir.LT, ir.Var(iter), ir.IntLit(10)),
		},
	}
	body := ir.StoreStmt(ir.Access{Tensor: t, Index: []*ir.Expr{ir.Var(iter)}}, ir.IntLit(1), nil)
	return &ir.PrimFunc{
		Name:     name,
		Params:   []*ir.Tensor{t},
		Computes: []*ir.Compute{ir.NewCompute(computeName, domain, body)},
	}
}

func TestFusedNameSanitizesAndCaseFolds(t *testing.T) {
	got := FusedName(0, "My-Func", "Stmt.A")
	want := "f0_my_func__stmt_a"
	if got != want {
		t.Fatalf("FusedName = %q, want %q", got, want)
	}
}

func TestIdentityBuildsDeclarationOrderTree(t *testing.T) {
	f := buildSingleIterFunc("f", "S", "i")
	tree, err := Identity(f)
	if err != nil {
		t.Fatalf("Identity returned error: %v", err)
	}
	if len(tree.TimeDims) != 1 {
		t.Fatalf("expected a single time dimension, got %d", len(tree.TimeDims))
	}
	if len(tree.Stmts) != 1 || tree.Stmts[0].IterForTimeDim[0] != "i" {
		t.Fatalf("unexpected statement schedule: %+v", tree.Stmts)
	}
}

func TestAutomaticFallsBackToIdentityForMultipleComputes(t *testing.T) {
	one := buildSingleIterFunc("f", "S1", "i")
	two := buildSingleIterFunc("f", "S2", "j")
	f := &ir.PrimFunc{
		Name:     "f",
		Params:   append(append([]*ir.Tensor{}, one.Params...), two.Params[0]),
		Computes: []*ir.Compute{one.Computes[0], two.Computes[0]},
	}
	identity, err := Identity(f)
	if err != nil {
		t.Fatalf("Identity returned error: %v", err)
	}
	automatic, err := Automatic(f)
	if err != nil {
		t.Fatalf("Automatic returned error: %v", err)
	}
	if len(automatic.TimeDims) != len(identity.TimeDims) {
		t.Fatalf("Automatic should fall back to Identity's shape for multi-compute PrimFuncs")
	}
}

func TestFuseTagsStatementsByFuncIndexAndName(t *testing.T) {
	f1 := buildSingleIterFunc("Add", "S", "i")
	f2 := buildSingleIterFunc("Mul", "S", "i")

	tree, err := Fuse([]*ir.PrimFunc{f1, f2})
	if err != nil {
		t.Fatalf("Fuse returned error: %v", err)
	}
	if len(tree.Stmts) != 2 {
		t.Fatalf("expected 2 fused statements, got %d", len(tree.Stmts))
	}
	names := []string{tree.Stmts[0].Name, tree.Stmts[1].Name}
	if names[0] == names[1] {
		t.Fatalf("fused statements from different PrimFuncs must not share a name: %v", names)
	}
	for i, n := range names {
		if !strings.HasPrefix(n, FusedName(i, []string{"Add", "Mul"}[i], "S")) {
			t.Fatalf("statement %d name %q does not match FusedName convention", i, n)
		}
	}
	// trailing fusion-tag dimension beyond each tree's own time dims
	if len(tree.TimeDims) != 2 {
		t.Fatalf("expected 1 time dim + 1 fusion tag dim, got %d", len(tree.TimeDims))
	}
}
