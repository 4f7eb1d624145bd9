package batch

import (
	"context"
	"errors"
	"testing"

	"loopoly/internal/ir"
)

func TestCompileAllRunsEveryJobAndPreservesOrder(t *testing.T) {
	jobs := []Compiler{
		func() (string, error) { return "one", nil },
		func() (string, error) { return "two", nil },
		func() (string, error) { return "", errors.New("boom") },
	}
	names := []string{"a", "b", "c"}

	results, err := CompileAll(context.Background(), names, jobs)
	if err != nil {
		t.Fatalf("CompileAll returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Name != "a" || results[0].Output != "one" || results[0].Err != nil {
		t.Fatalf("unexpected result[0]: %+v", results[0])
	}
	if results[1].Name != "b" || results[1].Output != "two" || results[1].Err != nil {
		t.Fatalf("unexpected result[1]: %+v", results[1])
	}
	if results[2].Name != "c" || results[2].Err == nil {
		t.Fatalf("expected result[2] to carry its own job's error, got %+v", results[2])
	}
}

func TestCompileAllRejectsMismatchedLengths(t *testing.T) {
	_, err := CompileAll(context.Background(), []string{"a"}, nil)
	if err == nil {
		t.Fatalf("expected an error when names and jobs lengths differ")
	}
}

func TestCompileAllEmptyIsNoOp(t *testing.T) {
	results, err := CompileAll(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("CompileAll returned error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected nil results for an empty batch, got %v", results)
	}
}

func TestCompileFuncBindsPrimFuncToClosure(t *testing.T) {
	f := &ir.PrimFunc{Name: "target"}
	var seen string
	job := CompileFunc(f, func(pf *ir.PrimFunc) (string, error) {
		seen = pf.Name
		return "compiled:" + pf.Name, nil
	})

	out, err := job()
	if err != nil {
		t.Fatalf("job returned error: %v", err)
	}
	if seen != "target" || out != "compiled:target" {
		t.Fatalf("CompileFunc did not bind f into the closure: seen=%q out=%q", seen, out)
	}
}
