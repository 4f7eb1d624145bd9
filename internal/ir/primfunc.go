package ir

import "fmt"

// PrimFunc is the unit Compile accepts: a function name, an ordered
// tensor parameter list with unique names, an ordered list of Computes
// it owns, and a global Schedule. A PrimFunc owns its Computes; a
// Compute owns its Domain and body; body expression trees may share
// structure but need not.
type PrimFunc struct {
	Name     string
	Params   []*Tensor
	Computes []*Compute
	Schedule Schedule
}

// ComputeByName returns the Compute with the given name, or nil.
func (f *PrimFunc) ComputeByName(name string) *Compute {
	for _, c := range f.Computes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Check runs the structural invariants spec.md §4.10 calls
// MalformedIR: unique Compute names, unique parameter names, and each
// Domain's own name-scoping invariant (spec.md §3).
func (f *PrimFunc) Check() error {
	if f.Name == "" {
		return fmt.Errorf("primfunc has no name")
	}
	seenParams := make(map[string]bool, len(f.Params))
	for _, p := range f.Params {
		if p.Name == "" {
			return fmt.Errorf("primfunc %q has an unnamed tensor parameter", f.Name)
		}
		if seenParams[p.Name] {
			return fmt.Errorf("primfunc %q has duplicate tensor parameter %q", f.Name, p.Name)
		}
		seenParams[p.Name] = true
	}
	if len(f.Computes) == 0 {
		return fmt.Errorf("primfunc %q has no computes", f.Name)
	}
	seenComputes := make(map[string]bool, len(f.Computes))
	for _, c := range f.Computes {
		if c.Name == "" {
			return fmt.Errorf("primfunc %q has an unnamed compute", f.Name)
		}
		if seenComputes[c.Name] {
			return fmt.Errorf("primfunc %q has duplicate compute name %q", f.Name, c.Name)
		}
		seenComputes[c.Name] = true
		if err := c.Domain.Check(); err != nil {
			return fmt.Errorf("compute %q: %w", c.Name, err)
		}
	}
	return nil
}
