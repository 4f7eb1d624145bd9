package cache

import (
	"errors"
	"testing"

	"loopoly"
	"loopoly/internal/ir"
)

func buildFunc(name string) *ir.PrimFunc {
	a := ir.NewTensor("A", ir.IntLit(10))
	body := ir.StoreStmt(ir.Access{Tensor: a, Index: []*ir.Expr{ir.Var("i")}}, ir.IntLit(1), nil)
	return &ir.PrimFunc{
		Name:     name,
		Params:   []*ir.Tensor{a},
		Computes: []*ir.Compute{ir.NewCompute("S", ir.Domain{Iterators: []ir.Iterator{{Name: "i", Kind: ir.Spatial}}}, body)},
	}
}

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	c, err := Open("loopoly-test")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	return c
}

func TestKeyIsStableAndSensitiveToOptions(t *testing.T) {
	f := buildFunc("f")
	k1 := Key(f, "")
	k2 := Key(f, "")
	if k1 != k2 {
		t.Fatalf("Key is not stable across calls: %q vs %q", k1, k2)
	}
	k3 := Key(f, "optimize;")
	if k1 == k3 {
		t.Fatalf("Key did not change when the option fingerprint changed")
	}
}

func TestKeyDiffersAcrossPrimFuncs(t *testing.T) {
	k1 := Key(buildFunc("f"), "")
	k2 := Key(buildFunc("g"), "")
	if k1 == k2 {
		t.Fatalf("Key should differ for PrimFuncs with different names")
	}
}

func TestGetMissIsNotAnError(t *testing.T) {
	c := openTestCache(t)
	_, hit, err := c.Get("does-not-exist")
	if err != nil {
		t.Fatalf("Get returned error on a miss: %v", err)
	}
	if hit {
		t.Fatalf("expected a cache miss")
	}
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c := openTestCache(t)
	if err := c.Put("k1", "void f(void) {}\n"); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	src, hit, err := c.Get("k1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !hit {
		t.Fatalf("expected a cache hit after Put")
	}
	if src != "void f(void) {}\n" {
		t.Fatalf("Get returned %q", src)
	}
}

func TestCacheCompileCachesOnFirstCallOnly(t *testing.T) {
	c := openTestCache(t)
	f := buildFunc("f")
	calls := 0
	compile := func() (string, error) {
		calls++
		return "first", nil
	}

	out1, err := c.Compile(f, "", compile)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	out2, err := c.Compile(f, "", compile)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected compile to run once, ran %d times", calls)
	}
	if out1 != "first" || out2 != "first" {
		t.Fatalf("unexpected outputs: %q, %q", out1, out2)
	}
}

func TestCacheCompilePropagatesComputeError(t *testing.T) {
	c := openTestCache(t)
	f := buildFunc("f")
	wantErr := errors.New("compile failed")
	_, err := c.Compile(f, "", func() (string, error) { return "", wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the compile error to propagate, got %v", err)
	}
}

func TestFingerprintOptionsReflectsOptimizeAndTiles(t *testing.T) {
	plain := FingerprintOptions(false, nil)
	if plain != "" {
		t.Fatalf("expected an empty fingerprint for no options, got %q", plain)
	}
	withOpts := FingerprintOptions(true, []loopoly.TileSpec{{Axis: "i", Size: 8}})
	if withOpts == "" {
		t.Fatalf("expected a non-empty fingerprint when options are set")
	}
	if withOpts == plain {
		t.Fatalf("fingerprint should change when options change")
	}
}
