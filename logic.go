package sigform

// predicate gates a merged sub-schema. path identifies the field the
// predicate is evaluated against; the levels to climb from an evaluating
// field are finalized when the merge is expanded against a concrete field
// tree (see boundPredicate).
type predicate struct {
	fn   func(*FieldContext) bool
	path *FieldPath
}

// boundPredicate is a predicate whose depth has been resolved against a
// concrete field: depth is the exact number of levels from the evaluating
// field up to the instance root of the schema the predicate's path belongs
// to.
type boundPredicate struct {
	fn    func(*FieldContext) bool
	path  *FieldPath
	depth int
}

// boundLogic is one builder contributing logic to a concrete field: the
// builder itself, the field's depth below the builder's schema-instance
// root, and the accumulated applyWhen gates with field-relative depths.
// A field usually has one boundLogic; recursive or repeated schema
// application yields several, evaluated in application order.
type boundLogic struct {
	b     *logicBuilder
	depth int
	preds []boundPredicate
}

// mergeEntry records one Apply/ApplyWhen of another schema's builder into
// this builder. The merged builder is referenced, not copied, which keeps
// self-referential schemas finite; expansion against the field tree is
// lazy, one level per field depth.
type mergeEntry struct {
	b     *logicBuilder
	preds []predicate
}

// DisabledReason explains why a field is disabled. Reasons accumulate down
// the tree: a field carries its ancestors' reasons in addition to its own.
type DisabledReason struct {
	Field  *FieldNode
	Reason string
}

// metadataRule contributes one value to an aggregate metadata key.
type metadataRule struct {
	key *AggregateKey
	fn  func(*FieldContext) any
}

// localRules are the rule buckets attached directly to one path.
type localRules struct {
	hidden     []func(*FieldContext) bool
	readonly   []func(*FieldContext) bool
	disabled   []func(*FieldContext) []DisabledReason
	syncErrors []func(*FieldContext) []FieldError
	treeErrors []func(*FieldContext) []FieldError
	async      []*AsyncValidator
	metadata   []metadataRule
}

// logicBuilder is the compiled representation of the rules attached to one
// path: its own buckets, child builders per key, and the merges contributed
// by Apply/ApplyWhen.
type logicBuilder struct {
	rules    localRules
	children map[pathKey]*logicBuilder
	merges   []mergeEntry
}

func newLogicBuilder() *logicBuilder {
	return &logicBuilder{children: make(map[pathKey]*logicBuilder)}
}

func (b *logicBuilder) child(key pathKey) *logicBuilder {
	if c, ok := b.children[key]; ok {
		return c
	}
	c := newLogicBuilder()
	b.children[key] = c
	return c
}

func (b *logicBuilder) merge(other *logicBuilder, preds []predicate) {
	b.merges = append(b.merges, mergeEntry{b: other, preds: preds})
}

// contains reports whether other is reachable from b through merges without
// descending into children. Used by path resolution to locate the ancestor
// field a schema was actually applied to.
func (b *logicBuilder) contains(other *logicBuilder) bool {
	return b.containsVisited(other, make(map[*logicBuilder]bool))
}

func (b *logicBuilder) containsVisited(other *logicBuilder, seen map[*logicBuilder]bool) bool {
	if b == other {
		return true
	}
	if seen[b] {
		return false
	}
	seen[b] = true
	for _, m := range b.merges {
		if m.b.containsVisited(other, seen) {
			return true
		}
	}
	return false
}

// expandLogic flattens bl and its merges into the evaluation-ordered list
// of builders contributing to one field. Merge-level predicates are
// finalized here: at the field where a merge attaches, the outer schema's
// instance root sits bl.depth levels up. The visited set tolerates
// self-referential merges at the same field.
func expandLogic(bl boundLogic, out []boundLogic, seen map[*logicBuilder]bool) []boundLogic {
	if seen[bl.b] {
		return out
	}
	seen[bl.b] = true
	out = append(out, bl)
	for _, m := range bl.b.merges {
		preds := append([]boundPredicate(nil), bl.preds...)
		for _, p := range m.preds {
			preds = append(preds, boundPredicate{fn: p.fn, path: p.path, depth: bl.depth})
		}
		out = expandLogic(boundLogic{b: m.b, depth: 0, preds: preds}, out, seen)
	}
	return out
}

// rootLogics computes the contributing builders for the root field.
func rootLogics(root *logicBuilder) []boundLogic {
	return expandLogic(boundLogic{b: root}, nil, make(map[*logicBuilder]bool))
}

// childLogics derives a child field's contributing builders from its
// parent's. Named keys follow the object child builder; array elements
// follow the dynamic per-element builder. Every predicate climbs one level
// further as logic descends.
func childLogics(parent []boundLogic, key childKey) []boundLogic {
	var out []boundLogic
	for _, bl := range parent {
		var pk pathKey
		if key.kind == childKeyObject {
			pk = objectPathKey(key.name)
		} else {
			pk = dynamicPathKey
		}
		cb, ok := bl.b.children[pk]
		if !ok {
			continue
		}
		preds := make([]boundPredicate, len(bl.preds))
		for i, p := range bl.preds {
			preds[i] = boundPredicate{fn: p.fn, path: p.path, depth: p.depth + 1}
		}
		out = expandLogic(boundLogic{b: cb, depth: bl.depth + 1, preds: preds}, out, make(map[*logicBuilder]bool))
	}
	return out
}
