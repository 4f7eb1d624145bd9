// Package batch is caller-side convenience around Compile for the
// parallel compilation spec.md §5 explicitly permits ("a caller may
// run many compile invocations in parallel provided each is given its
// own polyhedral context"). It does not change Compile's own
// single-threaded, synchronous contract; it only fans independent
// calls out with bounded concurrency (SPEC_FULL.md §5).
package batch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"loopoly/internal/ir"
	"loopoly/internal/perr"
)

// Compiler is one independent compile request, reduced to a thunk so
// batch never needs to import the root package (avoiding an import
// cycle, since the root package's own tests may want to exercise
// batch). CompileFunc is the common case of a single PrimFunc compiled
// with options the caller has already bound.
type Compiler func() (string, error)

// CompileFunc binds a PrimFunc to the caller's own compile closure
// (typically `func(f *ir.PrimFunc) (string, error) { return
// loopoly.Compile(loopoly.Single(f), opts...) }`).
func CompileFunc(f *ir.PrimFunc, compile func(*ir.PrimFunc) (string, error)) Compiler {
	return func() (string, error) { return compile(f) }
}

// Result is one job's outcome, positionally aligned with the Compiler
// slice CompileAll was given.
type Result struct {
	Name   string
	Output string
	Err    error
}

// CompileAll runs every compiler in jobs concurrently, capped at
// runtime.GOMAXPROCS(0) (or len(jobs), whichever is smaller), mirroring
// the teacher's internal/driver.TokenizeDir/ParseDir shape: an indexed
// result slice filled from goroutines that never share mutable state,
// and an errgroup used only for bounded concurrency and context
// cancellation, not for error aggregation — a single job's error is
// recorded in its own Result rather than aborting its siblings, since
// spec.md §7's "one structured error per failed compile" is per-job
// here, not per-batch.
func CompileAll(ctx context.Context, names []string, jobs []Compiler) ([]Result, error) {
	if len(names) != len(jobs) {
		return nil, perr.Malformed("batch", "names and jobs must be the same length")
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	limit := runtime.GOMAXPROCS(0)
	if limit > len(jobs) {
		limit = len(jobs)
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range jobs {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = Result{Name: names[i], Err: gctx.Err()}
				return nil
			default:
			}
			out, err := jobs[i]()
			results[i] = Result{Name: names[i], Output: out, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
