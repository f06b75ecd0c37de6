package sigform

// SchemaFn declares rules against a path tree. It runs once per root
// compilation; its only observable side effects are calls to the
// rule-registration functions (Required, Validate, Disabled, Apply, ...).
type SchemaFn func(p *FieldPath)

// Schema is a deferred, compilable rule set. Compilation happens when the
// schema becomes a form's root schema or is merged into another schema via
// Apply; the same Schema value compiles once per root compilation no matter
// how many times it is referenced, which also makes self-referential
// schemas finite.
type Schema struct {
	fn SchemaFn
}

// SchemaOf wraps fn into a reusable Schema.
func SchemaOf(fn SchemaFn) *Schema { return &Schema{fn: fn} }

// compileContext is the per-root-compilation state: the dedup cache keyed
// by schema identity and the active flag that path-ownership assertions
// check. It is threaded through the path roots it creates instead of living
// in a module-level variable, so concurrent root compilations cannot
// cross-talk.
type compileContext struct {
	active bool
	cache  map[*Schema]*FieldPath
}

// rootCompile compiles s into a fresh path tree. The cache entry is
// installed before the schema function runs so that a schema applying
// itself (directly or through a chain) reuses the same compiled path tree
// instead of recursing forever.
func rootCompile(s *Schema) *FieldPath {
	cc := &compileContext{active: true, cache: make(map[*Schema]*FieldPath)}
	defer func() { cc.active = false }()
	return compileIn(cc, s)
}

func compileIn(cc *compileContext, s *Schema) *FieldPath {
	if p, ok := cc.cache[s]; ok {
		return p
	}
	root := newPathRoot(cc)
	cc.cache[s] = root
	if s.fn != nil {
		s.fn(root)
	}
	return root
}

// Apply merges the logic of schema into the target path. The sub-schema's
// own paths resolve relative to target, so the same schema can be reused at
// any depth, including inside itself.
func Apply(target *FieldPath, schema *Schema) {
	assertCompiling(target, "Apply")
	sub := compileIn(target.root.compile, schema)
	target.builder.merge(sub.builder, nil)
}

// ApplyEach applies schema to every element of the array at target. Sugar
// for Apply(target.Each(), schema).
func ApplyEach(target *FieldPath, schema *Schema) {
	assertCompiling(target, "ApplyEach")
	Apply(target.Each(), schema)
}

// ApplyWhen applies schema to target gated by a predicate evaluated against
// target's field at rule-evaluation time. While the predicate is false the
// merged rules contribute nothing at all — not false/empty defaults.
func ApplyWhen(target *FieldPath, when func(*FieldContext) bool, schema *Schema) {
	assertCompiling(target, "ApplyWhen")
	if when == nil {
		panic("sigform: ApplyWhen: nil predicate")
	}
	sub := compileIn(target.root.compile, schema)
	target.builder.merge(sub.builder, []predicate{{fn: when, path: target}})
}

// ApplyWhenValue is ApplyWhen with a predicate over the target's plain
// value.
func ApplyWhenValue(target *FieldPath, when func(value any) bool, schema *Schema) {
	assertCompiling(target, "ApplyWhenValue")
	if when == nil {
		panic("sigform: ApplyWhenValue: nil predicate")
	}
	ApplyWhen(target, func(c *FieldContext) bool { return when(c.Value()) }, schema)
}
