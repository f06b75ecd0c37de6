package signals

// Computed is a memoized derived value. It tracks the sources read during
// its computation and recomputes only when one of them has changed, checked
// lazily on the next read.
type Computed[T any] struct {
	g         *Graph
	fn        func() T
	fnPrev    func(prev T, ok bool) T
	val       T
	ver       uint64
	deps      []dependency
	valid     bool
	checked   uint64
	computing bool
	eq        func(a, b T) bool
}

// Compute creates a memoized derived value.
func Compute[T any](g *Graph, fn func() T) *Computed[T] {
	return &Computed[T]{g: g, fn: fn, eq: shallowEqual[T]}
}

// ComputeEq creates a memoized derived value with a custom equality function.
// When a recomputation produces a value equal to the previous one, the
// computed's version is not advanced and downstream dependents stay valid.
func ComputeEq[T any](g *Graph, fn func() T, eq func(a, b T) bool) *Computed[T] {
	return &Computed[T]{g: g, fn: fn, eq: eq}
}

// Reduce creates a derived value whose computation observes its previous
// result. This is the reconciliation primitive: the children map of a field
// diffs against its prior instance map instead of rebuilding from scratch.
func Reduce[T any](g *Graph, fn func(prev T, ok bool) T) *Computed[T] {
	return &Computed[T]{g: g, fnPrev: fn, eq: shallowEqual[T]}
}

// ReduceEq is Reduce with a custom equality function.
func ReduceEq[T any](g *Graph, fn func(prev T, ok bool) T, eq func(a, b T) bool) *Computed[T] {
	return &Computed[T]{g: g, fnPrev: fn, eq: eq}
}

// Get returns the (possibly recomputed) value and registers a dependency in
// the enclosing computation, if any.
func (c *Computed[T]) Get() T {
	c.refresh()
	c.g.record(c)
	return c.val
}

// Peek returns the up-to-date value without registering a dependency.
func (c *Computed[T]) Peek() T {
	c.refresh()
	return c.val
}

func (c *Computed[T]) version() uint64 { return c.ver }

func (c *Computed[T]) refresh() {
	if c.computing {
		panic("signals: dependency cycle in computed value")
	}
	if c.valid && c.checked == c.g.clock {
		return
	}
	if c.valid && !depsChanged(c.deps) {
		c.checked = c.g.clock
		return
	}
	c.recompute()
}

func (c *Computed[T]) recompute() {
	c.computing = true
	defer func() { c.computing = false }()
	old := c.val
	wasValid := c.valid
	var next T
	c.deps = c.g.track(func() {
		if c.fnPrev != nil {
			next = c.fnPrev(old, wasValid)
		} else {
			next = c.fn()
		}
	})
	if !wasValid || c.eq == nil || !c.eq(old, next) {
		c.ver++
	}
	c.val = next
	c.valid = true
	c.checked = c.g.clock
}
