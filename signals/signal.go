package signals

// Signal is a writable reactive value.
type Signal[T any] struct {
	g   *Graph
	val T
	ver uint64
	eq  func(a, b T) bool
}

// New creates a writable signal holding v.
func New[T any](g *Graph, v T) *Signal[T] {
	return &Signal[T]{g: g, val: v, ver: 1, eq: shallowEqual[T]}
}

// NewEq creates a writable signal with a custom equality function used to
// suppress writes that do not change the value.
func NewEq[T any](g *Graph, v T, eq func(a, b T) bool) *Signal[T] {
	return &Signal[T]{g: g, val: v, ver: 1, eq: eq}
}

// Get returns the current value and registers a dependency in the enclosing
// computation, if any.
func (s *Signal[T]) Get() T {
	s.g.record(s)
	return s.val
}

// Peek returns the current value without registering a dependency.
func (s *Signal[T]) Peek() T { return s.val }

// Set replaces the value. Writes that are equal to the current value (per
// the signal's equality function) are dropped.
func (s *Signal[T]) Set(v T) {
	if s.eq != nil && s.eq(s.val, v) {
		return
	}
	s.val = v
	s.ver++
	s.g.bump()
}

// Update applies fn to the current value and stores the result.
func (s *Signal[T]) Update(fn func(T) T) { s.Set(fn(s.val)) }

func (s *Signal[T]) version() uint64 { return s.ver }
func (s *Signal[T]) refresh()        {}
