package affine

import (
	"testing"

	"loopoly/internal/ir"
)

func TestExprRendersArithmetic(t *testing.T) {
	cases := []struct {
		name string
		e    *ir.Expr
		want string
	}{
		{"int literal", ir.IntLit(5), "5"},
		{"variable", ir.Var("i"), "i"},
		{"negation", ir.Un(ir.Neg, ir.Var("i")), "-i"},
		{"sum", ir.Bin(ir.Add, ir.Var("i"), ir.IntLit(1)), "(i + 1)"},
		{"product", ir.Bin(ir.Mul, ir.IntLit(2), ir.Var("i")), "(2 * i)"},
		{"floor div", ir.Bin(ir.FloorDiv, ir.Var("i"), ir.IntLit(4)), "floor(i / 4)"},
		{"modulo", ir.Bin(ir.Mod, ir.Var("i"), ir.IntLit(4)), "(i % 4)"},
		{"max", ir.Bin(ir.BMax, ir.Var("i"), ir.Var("j")), "max(i, j)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Expr(tc.e)
			if err != nil {
				t.Fatalf("Expr returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Expr(%s) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

func TestExprRejectsFloatAndLoad(t *testing.T) {
	if _, err := Expr(ir.FloatLit(1.5)); err == nil {
		t.Fatalf("expected an Affinity error for a float literal")
	}
	a := ir.NewTensor("A", ir.IntLit(10))
	if _, err := Expr(ir.LoadExpr(a, ir.Var("i"))); err == nil {
		t.Fatalf("expected an Affinity error for a load expression")
	}
}

func TestConstraintRendersComparisonsAndConnectives(t *testing.T) {
	lt := ir.Cmp(ir.LT, ir.Var("i"), ir.IntLit(10))
	ge := ir.Cmp(ir.GE, ir.Var("i"), ir.IntLit(0))

	got, err := Constraint(lt)
	if err != nil {
		t.Fatalf("Constraint returned error: %v", err)
	}
	if got != "i < 10" {
		t.Fatalf("Constraint(lt) = %q", got)
	}

	conj := ir.Logic(ir.And, ge, lt)
	got, err = Constraint(conj)
	if err != nil {
		t.Fatalf("Constraint returned error: %v", err)
	}
	if got != "(i >= 0 and i < 10)" {
		t.Fatalf("Constraint(conj) = %q", got)
	}
}

func TestHeaderRendersTupleAndParams(t *testing.T) {
	constraints := []*ir.Constraint{
		ir.Cmp(ir.GE, ir.Var("i"), ir.IntLit(0)),
		ir.Cmp(ir.LT, ir.Var("i"), ir.Var("n")),
	}
	paramsStr, tuple, constraintsStr, err := Header([]string{"n"}, "S", []string{"i"}, constraints)
	if err != nil {
		t.Fatalf("Header returned error: %v", err)
	}
	if paramsStr != "[n]" {
		t.Fatalf("paramsStr = %q", paramsStr)
	}
	if tuple != "S[i]" {
		t.Fatalf("tuple = %q", tuple)
	}
	want := "(i >= 0 and i < n)"
	if constraintsStr != want {
		t.Fatalf("constraintsStr = %q, want %q", constraintsStr, want)
	}
}

func TestHeaderWithNoParamsOrConstraints(t *testing.T) {
	paramsStr, tuple, constraintsStr, err := Header(nil, "S", []string{"i"}, nil)
	if err != nil {
		t.Fatalf("Header returned error: %v", err)
	}
	if paramsStr != "[]" {
		t.Fatalf("paramsStr = %q, want []", paramsStr)
	}
	if tuple != "S[i]" {
		t.Fatalf("tuple = %q", tuple)
	}
	if constraintsStr != "1 = 1" {
		t.Fatalf("constraintsStr = %q, want tautology", constraintsStr)
	}
}
