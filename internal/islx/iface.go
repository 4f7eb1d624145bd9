package islx

// Context is the polyhedral-context type of spec.md §6's engine
// surface. The engine's operations in this package take no Context,
// and no other package in this module creates one.
type Context struct {
	fresh int
}

func NewContext() *Context { return &Context{} }

// FreshName returns a Context-scoped unique identifier of the form
// prefix$N, with N counting up from 1 per Context. No package in this
// module calls it.
func (c *Context) FreshName(prefix string) string {
	c.fresh++
	return prefix + "$" + itoa(c.fresh)
}
