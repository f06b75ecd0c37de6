package signals

import "reflect"

// Linked is a writable signal tied to a reactive source: explicit writes are
// preserved across unrelated graph changes, but as soon as the source value
// changes the linked signal snaps back to a freshly computed value. The form
// engine uses it for server errors, which become stale the moment the user
// edits the field's value.
type Linked[T any] struct {
	g           *Graph
	src         *Computed[any]
	fresh       func() T
	override    T
	hasOverride bool
	overrideVer uint64
	ver         uint64
}

// NewLinked creates a linked signal. source is the reactive value whose
// changes invalidate writes; fresh produces the value reported while no
// write is in force (typically a zero value).
func NewLinked[T any](g *Graph, source func() any, fresh func() T) *Linked[T] {
	return &Linked[T]{
		g:     g,
		src:   ComputeEq(g, source, func(a, b any) bool { return reflect.DeepEqual(a, b) }),
		fresh: fresh,
	}
}

// Get returns the written value while it is still in force, or the fresh
// value otherwise. Registers a dependency in the enclosing computation.
func (l *Linked[T]) Get() T {
	l.refresh()
	l.g.record(l)
	if l.hasOverride {
		return l.override
	}
	return l.fresh()
}

// Peek is Get without dependency registration.
func (l *Linked[T]) Peek() T {
	l.refresh()
	if l.hasOverride {
		return l.override
	}
	return l.fresh()
}

// Set stores a value that remains in force until the source changes.
func (l *Linked[T]) Set(v T) {
	l.src.refresh()
	l.override = v
	l.hasOverride = true
	l.overrideVer = l.src.version()
	l.ver++
	l.g.bump()
}

func (l *Linked[T]) refresh() {
	l.src.refresh()
	if l.hasOverride && l.src.version() != l.overrideVer {
		var zero T
		l.override = zero
		l.hasOverride = false
		l.ver++
	}
}

// version folds in the source version so dependents revalidate both on
// writes and on source-driven resets.
func (l *Linked[T]) version() uint64 { return l.ver + l.src.version() }
