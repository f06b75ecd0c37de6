package sigform

import "context"

// FieldContext is the evaluation context handed to rule functions and
// predicates. It identifies the field the rule is running against and
// resolves cross-field path references relative to the correct schema
// instantiation.
//
// Rule functions run inside the engine's reactive evaluation; within a rule,
// read other fields through the context's FieldOf/ValueOf/Child/At helpers
// rather than calling the public FieldNode API.
type FieldContext struct {
	node  *FieldNode
	depth int
}

// Field returns the field the rule is evaluating against, for use as an
// explicit error target.
func (c *FieldContext) Field() *FieldNode { return c.node }

// Value returns the field's current value.
func (c *FieldContext) Value() any { return c.node.structure.value() }

// Key returns the field's key in its parent ("" at the root).
func (c *FieldContext) Key() string { return c.node.structure.keyString() }

// Index returns the field's position in its parent array, if it is an array
// element.
func (c *FieldContext) Index() (int, bool) { return c.node.structure.index() }

// FieldOf resolves a schema path to the corresponding field of the same
// schema instantiation the current rule belongs to. Returns nil when the
// path's key sequence is absent from the current data.
func (c *FieldContext) FieldOf(p *FieldPath) *FieldNode {
	return resolveField(c.node, c.depth, p)
}

// ValueOf is FieldOf followed by a value read; it returns nil for absent
// fields.
func (c *FieldContext) ValueOf(p *FieldPath) any {
	f := c.FieldOf(p)
	if f == nil {
		return nil
	}
	return f.structure.value()
}

// Child returns the evaluation context of a named child, or nil when the
// child is absent from the data.
func (c *FieldContext) Child(name string) *FieldContext {
	child := c.node.childByName(name)
	if child == nil {
		return nil
	}
	return &FieldContext{node: child, depth: c.depth + 1}
}

// At returns the evaluation context of the i-th array element, or nil when
// out of range.
func (c *FieldContext) At(i int) *FieldContext {
	child := c.node.childByIndex(i)
	if child == nil {
		return nil
	}
	return &FieldContext{node: child, depth: c.depth + 1}
}

// resolveField climbs exactly depth levels from f to the schema-instance
// root the path belongs to, verifies the schema was actually applied there,
// and descends the path's keys. Dynamic path segments cannot be resolved to
// a concrete element and panic; resolving against a tree the path's schema
// was never applied to is a caller bug and panics too. A key sequence
// missing from the data returns nil.
func resolveField(f *FieldNode, depth int, p *FieldPath) *FieldNode {
	if p == nil {
		panic("sigform: resolve: nil path")
	}
	cur := f
	for i := 0; i < depth; i++ {
		if cur.structure.parent == nil {
			panic("sigform: resolve: path depth exceeds the field tree")
		}
		cur = cur.structure.parent
	}
	if !cur.logicContains(p.root.path.builder) {
		panic("sigform: resolve: path does not belong to this field tree")
	}
	for _, k := range p.keys {
		if k.dynamic {
			panic("sigform: resolve: cannot resolve a dynamic (per-element) path to a single field")
		}
		cur = cur.childByName(k.name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Hidden registers a visibility rule: any rule returning true hides the
// field and its subtree. Hidden fields skip validation entirely.
func Hidden(path *FieldPath, fn func(*FieldContext) bool) {
	assertCompiling(path, "Hidden")
	if fn == nil {
		panic("sigform: Hidden: nil rule")
	}
	path.builder.rules.hidden = append(path.builder.rules.hidden, fn)
}

// ReadOnly registers a read-only rule; read-only fields skip validation.
func ReadOnly(path *FieldPath, fn func(*FieldContext) bool) {
	assertCompiling(path, "ReadOnly")
	if fn == nil {
		panic("sigform: ReadOnly: nil rule")
	}
	path.builder.rules.readonly = append(path.builder.rules.readonly, fn)
}

// Disabled registers a disablement rule. Unlike Hidden, disablement carries
// a reason; all applicable reasons are collected, not just a boolean.
func Disabled(path *FieldPath, fn func(*FieldContext) (reason string, disabled bool)) {
	assertCompiling(path, "Disabled")
	if fn == nil {
		panic("sigform: Disabled: nil rule")
	}
	wrapped := func(c *FieldContext) []DisabledReason {
		reason, on := fn(c)
		if !on {
			return nil
		}
		return []DisabledReason{{Field: c.node, Reason: reason}}
	}
	path.builder.rules.disabled = append(path.builder.rules.disabled, wrapped)
}

// Validate registers a synchronous validation rule. A nil result means the
// value is acceptable; returned errors default their target to the field
// the rule is declared on.
func Validate(path *FieldPath, fn func(*FieldContext) []FieldError) {
	assertCompiling(path, "Validate")
	if fn == nil {
		panic("sigform: Validate: nil rule")
	}
	path.builder.rules.syncErrors = append(path.builder.rules.syncErrors, fn)
}

// ValidateTree registers a validation rule that may target descendant
// fields: returned errors carry an explicit Field (obtained through the
// context), or default to the field the rule is declared on.
func ValidateTree(path *FieldPath, fn func(*FieldContext) []FieldError) {
	assertCompiling(path, "ValidateTree")
	if fn == nil {
		panic("sigform: ValidateTree: nil rule")
	}
	path.builder.rules.treeErrors = append(path.builder.rules.treeErrors, fn)
}

// AsyncValidator describes a resource-backed validation rule. Params is
// recomputed reactively from field state; whenever it produces a new value
// the previous in-flight load is cancelled and a fresh one starts. The
// loader never runs while the field has outstanding synchronous errors or
// is skipped from validation.
type AsyncValidator struct {
	// Params derives the loader input from field state. ok=false suppresses
	// the load entirely. A nil Params uses the field's value.
	Params func(*FieldContext) (params any, ok bool)
	// Load performs the asynchronous work. It runs on its own goroutine;
	// ctx is cancelled when the parameters change or the field is
	// destroyed.
	Load func(ctx context.Context, params any) (any, error)
	// OnSettled maps a successful load result to validation errors; nil
	// result slices mean the value is acceptable.
	OnSettled func(result any, c *FieldContext) []FieldError
	// OnError maps a loader failure to validation errors. When nil, the
	// failure surfaces as a single error of kind "async".
	OnError func(err error, c *FieldContext) []FieldError
}

// ValidateAsync registers a resource-backed asynchronous validation rule on
// the given path.
func ValidateAsync(path *FieldPath, v AsyncValidator) {
	assertCompiling(path, "ValidateAsync")
	if v.Load == nil {
		panic("sigform: ValidateAsync: Load is required")
	}
	vc := v
	path.builder.rules.async = append(path.builder.rules.async, &vc)
}
