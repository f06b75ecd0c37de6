package sigform

// pathKey is one property-access step in a schema's path space. A dynamic
// key stands for "any element" of an array-valued path.
type pathKey struct {
	name    string
	dynamic bool
}

func objectPathKey(name string) pathKey { return pathKey{name: name} }

var dynamicPathKey = pathKey{dynamic: true}

// FieldPath is a node in a schema's declared path space, used at
// schema-authoring time before any data exists. Paths are created lazily on
// first access and interned: two accesses to the same path yield the
// identical *FieldPath, which is what makes structural containment checks
// and predicate resolution possible.
type FieldPath struct {
	root     *schemaRoot
	keys     []pathKey
	builder  *logicBuilder
	children map[pathKey]*FieldPath
}

// schemaRoot ties a path tree to the compilation that produced it. The
// compile context is what rule-registration functions check to reject paths
// captured from a different, already-compiled schema.
type schemaRoot struct {
	path    *FieldPath
	compile *compileContext
}

func newPathRoot(cc *compileContext) *FieldPath {
	p := &FieldPath{
		builder:  newLogicBuilder(),
		children: make(map[pathKey]*FieldPath),
	}
	p.root = &schemaRoot{path: p, compile: cc}
	return p
}

// Child returns the path one property step below p, creating it on first
// access. Repeated calls with the same name return the same instance.
func (p *FieldPath) Child(name string) *FieldPath {
	return p.child(objectPathKey(name))
}

// Each returns the per-element path of an array-valued path: rules attached
// below Each() apply to every element of the backing array.
func (p *FieldPath) Each() *FieldPath {
	return p.child(dynamicPathKey)
}

func (p *FieldPath) child(key pathKey) *FieldPath {
	if c, ok := p.children[key]; ok {
		return c
	}
	c := &FieldPath{
		root:     p.root,
		keys:     append(append([]pathKey(nil), p.keys...), key),
		builder:  p.builder.child(key),
		children: make(map[pathKey]*FieldPath),
	}
	p.children[key] = c
	return c
}

func (p *FieldPath) depth() int { return len(p.keys) }

// assertCompiling panics when a path is used with a rule-registration
// function outside the compilation of the schema that owns it. This is a
// caller bug and must fail loudly rather than silently mis-attach logic.
func assertCompiling(p *FieldPath, op string) {
	if p == nil {
		panic("sigform: " + op + ": nil path")
	}
	if p.root.compile == nil || !p.root.compile.active {
		panic("sigform: " + op + ": path used outside the schema that is currently compiling")
	}
}
