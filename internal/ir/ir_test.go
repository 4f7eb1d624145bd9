package ir

import "testing"

func TestDomainCheckAcceptsKnownNames(t *testing.T) {
	d := Domain{
		Params:    []string{"N"},
		Iterators: []Iterator{{Name: "i", Kind: Spatial}},
		Constraints: []*Constraint{
			Cmp(GE, Var("i"), IntLit(0)),
			Cmp(LT, Var("i"), Var("N")),
		},
	}
	if err := d.Check(); err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
}

func TestDomainCheckRejectsUnknownName(t *testing.T) {
	d := Domain{
		Iterators:   []Iterator{{Name: "i", Kind: Spatial}},
		Constraints: []*Constraint{Cmp(LT, Var("i"), Var("N"))},
	}
	if err := d.Check(); err == nil {
		t.Fatalf("expected Check to reject a reference to the unbound parameter N")
	}
}

func TestDomainIteratorNamesAndReduceIterators(t *testing.T) {
	d := Domain{
		Iterators: []Iterator{
			{Name: "i", Kind: Spatial},
			{Name: "k", Kind: Reduce},
		},
	}
	names := d.IteratorNames()
	if len(names) != 2 || names[0] != "i" || names[1] != "k" {
		t.Fatalf("IteratorNames = %v", names)
	}
	reduce := d.ReduceIterators()
	if len(reduce) != 1 || reduce[0].Name != "k" {
		t.Fatalf("ReduceIterators = %+v", reduce)
	}
}

func buildValidPrimFunc() *PrimFunc {
	a := NewTensor("A", IntLit(10))
	body := StoreStmt(Access{Tensor: a, Index: []*Expr{Var("i")}}, IntLit(1), nil)
	dom := Domain{Iterators: []Iterator{{Name: "i", Kind: Spatial}}}
	return &PrimFunc{Name: "f", Params: []*Tensor{a}, Computes: []*Compute{NewCompute("S", dom, body)}}
}

func TestPrimFuncCheckAcceptsWellFormedFunc(t *testing.T) {
	if err := buildValidPrimFunc().Check(); err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
}

func TestPrimFuncCheckRejectsDuplicateComputeNames(t *testing.T) {
	f := buildValidPrimFunc()
	f.Computes = append(f.Computes, f.Computes[0])
	if err := f.Check(); err == nil {
		t.Fatalf("expected Check to reject duplicate compute names")
	}
}

func TestPrimFuncCheckRejectsNoComputes(t *testing.T) {
	f := buildValidPrimFunc()
	f.Computes = nil
	if err := f.Check(); err == nil {
		t.Fatalf("expected Check to reject a PrimFunc with no computes")
	}
}

func TestPrimFuncComputeByName(t *testing.T) {
	f := buildValidPrimFunc()
	if c := f.ComputeByName("S"); c == nil || c.Name != "S" {
		t.Fatalf("ComputeByName(S) = %+v", c)
	}
	if c := f.ComputeByName("missing"); c != nil {
		t.Fatalf("expected nil for an unknown compute name, got %+v", c)
	}
}

func TestTensorRank(t *testing.T) {
	scalar := NewTensor("s")
	vec := NewTensor("v", IntLit(10))
	mat := NewTensor("m", IntLit(10), IntLit(20))
	if scalar.Rank() != 0 || vec.Rank() != 1 || mat.Rank() != 2 {
		t.Fatalf("unexpected ranks: %d %d %d", scalar.Rank(), vec.Rank(), mat.Rank())
	}
}

func TestScheduleProjectAndSharable(t *testing.T) {
	s := Schedule{"j", "i", "k"}
	if !s.Sharable([]string{"i", "j"}) {
		t.Fatalf("expected {i,j} to be sharable with schedule %v", s)
	}
	if s.Sharable([]string{"i", "m"}) {
		t.Fatalf("did not expect {i,m} to be sharable with schedule %v", s)
	}
	proj := s.Project([]string{"i", "j"})
	if len(proj) != 2 || proj[0] != "j" || proj[1] != "i" {
		t.Fatalf("Project = %v, want [j i]", proj)
	}
}

func TestContainsLoadAndContainsFloat(t *testing.T) {
	a := NewTensor("A", IntLit(10))
	load := LoadExpr(a, Var("i"))
	if !ContainsLoad(Bin(Add, load, IntLit(1))) {
		t.Fatalf("expected ContainsLoad to find the nested load")
	}
	if ContainsLoad(Bin(Add, Var("i"), IntLit(1))) {
		t.Fatalf("did not expect ContainsLoad to find a load in a load-free expression")
	}
	if !ContainsFloat(Bin(Add, Var("i"), FloatLit(1.5))) {
		t.Fatalf("expected ContainsFloat to find the nested float literal")
	}
	if ContainsFloat(Bin(Add, Var("i"), IntLit(1))) {
		t.Fatalf("did not expect ContainsFloat to find a float in an integer-only expression")
	}
}
