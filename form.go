package sigform

import (
	"context"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/reoring/sigform/signals"
)

// Form owns a live form: the data signal, the lazily built field tree and
// the reactive graph they share. The graph itself is single-threaded; the
// form serializes all access with one mutex at the public API boundary, so
// a Form and its fields are safe for concurrent use.
type Form struct {
	mu    sync.Mutex
	graph *signals.Graph
	data  *signals.Signal[any]

	name        string
	log         *zap.Logger
	ctx         context.Context
	rootBuilder *logicBuilder
	identities  *identityTable

	root  *FieldNode
	nodes map[*FieldNode]struct{}
	sweep *signals.Effect
}

// Option configures a Form at construction.
type Option func(*Form)

// WithName sets the form name used as the root of dotted field names.
// The default is "form".
func WithName(name string) Option {
	return func(f *Form) { f.name = name }
}

// WithLogger installs a logger for engine debug output. The default
// discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(f *Form) {
		if log != nil {
			f.log = log
		}
	}
}

// WithContext sets the base context for async validator loads. Cancelling
// it cancels every in-flight load. The default is context.Background.
func WithContext(ctx context.Context) Option {
	return func(f *Form) {
		if ctx != nil {
			f.ctx = ctx
		}
	}
}

// New compiles schema and builds a form over the initial data. Fields are
// instantiated lazily as they are first accessed; the schema function runs
// exactly once, here.
func New(initial any, schema *Schema, opts ...Option) *Form {
	if schema == nil {
		panic("sigform: New: nil schema")
	}
	f := &Form{
		name:       "form",
		log:        zap.NewNop(),
		ctx:        context.Background(),
		identities: newIdentityTable(),
		nodes:      make(map[*FieldNode]struct{}),
	}
	for _, o := range opts {
		o(f)
	}
	f.graph = signals.NewGraph()
	f.data = signals.NewEq(f.graph, initial, func(a, b any) bool { return reflect.DeepEqual(a, b) })
	f.rootBuilder = rootCompile(schema).builder
	f.root = newFieldNode(f, nil, childKey{})
	f.sweep = signals.NewEffect(f.graph, f.runSweep)
	f.log.Debug("form created", zap.String("form", f.name))
	return f
}

// Root returns the root field.
func (f *Form) Root() *FieldNode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.root
}

// Name returns the form name.
func (f *Form) Name() string { return f.name }

// Value returns the whole form value.
func (f *Form) Value() any { return f.Root().Value() }

// SetValue replaces the whole form value.
func (f *Form) SetValue(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data.Set(v)
}

// Submitting reports whether a submit is in progress anywhere in the form.
func (f *Form) Submitting() bool {
	return f.Root().Submitting()
}

// settle records an async load outcome. Called from loader goroutines.
func (f *Form) settle(r *resource, seq int, result any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.settle(seq, result, err)
	f.log.Debug("async validation settled",
		zap.String("field", r.f.nameLocked()),
		zap.Bool("failed", err != nil))
}

// runSweep destroys field nodes whose data location no longer exists and
// prunes identity tags that no current array element carries. It runs as an
// effect over the data signal, so every data write reconciles the node set.
func (f *Form) runSweep() {
	data := f.data.Get()
	live := make(map[*FieldNode]int, len(f.nodes))
	var doomed []*FieldNode
	for n := range f.nodes {
		if f.liveness(n, live) != nodeLive {
			doomed = append(doomed, n)
		}
	}
	for _, n := range doomed {
		f.log.Debug("field removed", zap.String("field", n.nameLocked()))
		n.destroy()
	}
	tags := make(map[string]bool)
	f.collectTags(data, tags)
	f.identities.pruneTo(tags)
}

const (
	nodeUnknown = iota
	nodeLive
	nodeDead
)

// liveness decides whether n's data location still exists, memoized per
// sweep. The check walks raw values only and never materializes fields.
func (f *Form) liveness(n *FieldNode, memo map[*FieldNode]int) int {
	if n == f.root {
		return nodeLive
	}
	if st := memo[n]; st != nodeUnknown {
		return st
	}
	st := nodeDead
	parent := n.structure.parent
	if parent != nil && f.liveness(parent, memo) == nodeLive {
		pv := f.rawValue(parent)
		switch n.structure.key.kind {
		case childKeyObject:
			if m, ok := pv.(map[string]any); ok {
				if _, present := m[n.structure.key.name]; present {
					st = nodeLive
				}
			}
		case childKeyIndex:
			if arr, ok := pv.([]any); ok && n.structure.key.index < len(arr) {
				st = nodeLive
			}
		case childKeyIdentity:
			if arr, ok := pv.([]any); ok {
				for _, elem := range arr {
					if tag, ok := f.identities.tagFor(elem); ok && tag == n.structure.key.name {
						st = nodeLive
						break
					}
				}
			}
		}
	}
	memo[n] = st
	return st
}

// rawValue reads a field's current value straight out of the data, locating
// identity elements by tag.
func (f *Form) rawValue(n *FieldNode) any {
	if n.structure.parent == nil {
		return f.data.Peek()
	}
	pv := f.rawValue(n.structure.parent)
	switch n.structure.key.kind {
	case childKeyObject:
		if m, ok := pv.(map[string]any); ok {
			return m[n.structure.key.name]
		}
	case childKeyIndex:
		if arr, ok := pv.([]any); ok && n.structure.key.index < len(arr) {
			return arr[n.structure.key.index]
		}
	case childKeyIdentity:
		if arr, ok := pv.([]any); ok {
			for _, elem := range arr {
				if tag, ok := f.identities.tagFor(elem); ok && tag == n.structure.key.name {
					return elem
				}
			}
		}
	}
	return nil
}

// collectTags tags every array element in the data and records the live
// tag set. Tagging ahead of field materialization is what keeps element
// identity stable even for elements no field has touched yet.
func (f *Form) collectTags(v any, out map[string]bool) {
	switch t := v.(type) {
	case map[string]any:
		for _, cv := range t {
			f.collectTags(cv, out)
		}
	case []any:
		for _, elem := range t {
			if tag, ok := f.identities.tagFor(elem); ok {
				out[tag] = true
			}
			f.collectTags(elem, out)
		}
	}
}
