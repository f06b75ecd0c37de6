package signals

import "reflect"

// source is anything a computation can depend on: a Signal, a Computed or a
// Linked. Versions are monotonic; a changed version means the value may
// differ from what the dependent last observed.
type source interface {
	version() uint64
	refresh()
}

// dependency records one observed source and the version seen at read time.
type dependency struct {
	src  source
	seen uint64
}

type frame struct {
	deps []dependency
}

// Graph owns the version clock, the dependency-tracking stack and the set of
// live effects. All signals, computeds and effects belong to exactly one
// Graph.
type Graph struct {
	clock    uint64
	frames   []*frame
	effects  map[*Effect]struct{}
	flushing bool
}

// NewGraph creates an empty reactive graph.
func NewGraph() *Graph {
	return &Graph{clock: 1, effects: make(map[*Effect]struct{})}
}

// record registers src as a dependency of the innermost tracking frame, if
// any. The version is captured after the source has been refreshed.
func (g *Graph) record(src source) {
	if len(g.frames) == 0 {
		return
	}
	f := g.frames[len(g.frames)-1]
	if f == nil {
		// untracked region
		return
	}
	for i := range f.deps {
		if f.deps[i].src == src {
			f.deps[i].seen = src.version()
			return
		}
	}
	f.deps = append(f.deps, dependency{src: src, seen: src.version()})
}

// track runs fn with a fresh tracking frame and returns the dependencies it
// read.
func (g *Graph) track(fn func()) []dependency {
	fr := &frame{}
	g.frames = append(g.frames, fr)
	defer func() { g.frames = g.frames[:len(g.frames)-1] }()
	fn()
	return fr.deps
}

// Untracked runs fn without registering any dependencies in the enclosing
// computation.
func Untracked[T any](g *Graph, fn func() T) T {
	g.frames = append(g.frames, nil)
	defer func() { g.frames = g.frames[:len(g.frames)-1] }()
	return fn()
}

// bump advances the clock after a write and re-runs any effect whose
// dependencies changed.
func (g *Graph) bump() {
	g.clock++
	g.flush()
}

func (g *Graph) flush() {
	if g.flushing {
		return
	}
	g.flushing = true
	defer func() { g.flushing = false }()
	// Effects may write signals themselves; iterate until stable with a
	// hard cap so a mis-behaving effect cannot hang the caller.
	for round := 0; round < 100; round++ {
		ran := false
		for e := range g.effects {
			if e.stale() {
				e.run()
				ran = true
			}
		}
		if !ran {
			return
		}
	}
	panic("signals: effect did not stabilize after 100 rounds")
}

func depsChanged(deps []dependency) bool {
	for i := range deps {
		deps[i].src.refresh()
		if deps[i].src.version() != deps[i].seen {
			return true
		}
	}
	return false
}

// shallowEqual reports whether two values of the same type are equal using
// Go's == when the runtime type is comparable. Non-comparable values (maps,
// slices, funcs) are never considered equal here; callers that want deep
// semantics supply their own equality function.
func shallowEqual[T any](a, b T) bool {
	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return va.Equal(vb)
}
