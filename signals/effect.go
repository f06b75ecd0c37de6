package signals

// Effect re-runs a side-effecting function whenever one of the sources it
// read during its previous run changes. Effects run synchronously inside the
// write that invalidated them.
type Effect struct {
	g       *Graph
	fn      func()
	deps    []dependency
	stopped bool
}

// NewEffect registers fn as an effect and runs it once immediately.
func NewEffect(g *Graph, fn func()) *Effect {
	e := &Effect{g: g, fn: fn}
	g.effects[e] = struct{}{}
	e.run()
	return e
}

// Stop unregisters the effect; it will never run again.
func (e *Effect) Stop() {
	if e.stopped {
		return
	}
	e.stopped = true
	delete(e.g.effects, e)
}

func (e *Effect) stale() bool {
	if e.stopped {
		return false
	}
	return depsChanged(e.deps)
}

func (e *Effect) run() {
	e.deps = e.g.track(e.fn)
}
