package sigform

import (
	"reflect"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/reoring/sigform/signals"
)

// childKeyKind says how a child is identified within its parent value.
type childKeyKind int

const (
	// childKeyObject is a named property of a map value.
	childKeyObject childKeyKind = iota
	// childKeyIdentity is an array element tracked by the identity of its
	// backing map or slice, stable across reordering.
	childKeyIdentity
	// childKeyIndex is an array element of a primitive value, identified
	// only by position.
	childKeyIndex
)

// childKey identifies one child field within its parent. Two snapshots of
// the data that produce the same childKey produce the same *FieldNode.
type childKey struct {
	kind  childKeyKind
	name  string
	index int
}

func (k childKey) String() string {
	if k.kind == childKeyObject {
		return k.name
	}
	return strconv.Itoa(k.index)
}

// childSet is the reconciled set of child fields for one parent: lookup by
// key plus the positional order (meaningful for array parents).
type childSet struct {
	byKey map[childKey]*FieldNode
	order []*FieldNode
}

// identityEntry pairs a tracked value with its synthetic identity tag.
type identityEntry struct {
	tag string
}

// identityTable assigns stable synthetic tags to array elements backed by
// maps or slices, keyed by the backing storage's pointer. The table is
// pruned against the set of live tags during the form's sweep so it cannot
// grow without bound as elements come and go.
type identityTable struct {
	entries map[uintptr]identityEntry
}

func newIdentityTable() *identityTable {
	return &identityTable{entries: make(map[uintptr]identityEntry)}
}

// identityPointer extracts the backing pointer of values that have one.
// Primitives return ok=false and fall back to positional identity.
func identityPointer(v any) (uintptr, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

func (t *identityTable) tagFor(v any) (string, bool) {
	ptr, ok := identityPointer(v)
	if !ok {
		return "", false
	}
	e, ok := t.entries[ptr]
	if !ok {
		e = identityEntry{tag: uuid.NewString()}
		t.entries[ptr] = e
	}
	return e.tag, true
}

// pruneTo drops every entry whose tag is not in live.
func (t *identityTable) pruneTo(live map[string]bool) {
	for ptr, e := range t.entries {
		if !live[e.tag] {
			delete(t.entries, ptr)
		}
	}
}

// fieldStructure is a field's position in the data tree: its parent link,
// its key within the parent, and the reconciled child set. Values are never
// stored here; every read walks up to the form's root data signal and every
// write rebuilds the spine of the tree copy-on-write.
type fieldStructure struct {
	form     *Form
	node     *FieldNode
	parent   *FieldNode
	key      childKey
	children *signals.Computed[childSet]
	orphaned bool
}

// value reads the field's current value out of the form data. Absent keys
// read as nil. The read registers reactive dependencies on the parent chain,
// so computations using it re-run when the value (or, for array elements,
// the position) changes.
func (s *fieldStructure) value() any {
	if s.orphaned {
		panic("sigform: field no longer exists in the form data")
	}
	if s.parent == nil {
		return s.form.data.Get()
	}
	pv := s.parent.structure.value()
	if s.key.kind == childKeyObject {
		m, ok := pv.(map[string]any)
		if !ok {
			return nil
		}
		return m[s.key.name]
	}
	arr, ok := pv.([]any)
	if !ok {
		return nil
	}
	i, ok := s.index()
	if !ok || i < 0 || i >= len(arr) {
		return nil
	}
	return arr[i]
}

// setValue writes the field's value by rebuilding the path from this field
// up to the root with fresh containers, then committing the new root to the
// data signal. Siblings keep their original backing storage, which is what
// preserves their identity tags.
func (s *fieldStructure) setValue(v any) {
	if s.orphaned {
		panic("sigform: field no longer exists in the form data")
	}
	if s.parent == nil {
		s.form.data.Set(v)
		return
	}
	pv := s.parent.structure.value()
	if s.key.kind == childKeyObject {
		old, _ := pv.(map[string]any)
		next := make(map[string]any, len(old)+1)
		for k, ov := range old {
			next[k] = ov
		}
		next[s.key.name] = v
		s.parent.structure.setValue(next)
		return
	}
	old, ok := pv.([]any)
	if !ok {
		return
	}
	i, ok := s.index()
	if !ok || i < 0 || i >= len(old) {
		return
	}
	next := make([]any, len(old))
	copy(next, old)
	next[i] = v
	s.parent.structure.setValue(next)
}

// index returns the field's current position in its parent array. Object
// children and the root have no index.
func (s *fieldStructure) index() (int, bool) {
	if s.parent == nil || s.key.kind == childKeyObject {
		return 0, false
	}
	if s.key.kind == childKeyIndex {
		return s.key.index, true
	}
	set := s.parent.structure.children.Get()
	for i, n := range set.order {
		if n == s.node {
			return i, true
		}
	}
	return 0, false
}

// keyString returns the field's key as it appears in a dotted field name.
func (s *fieldStructure) keyString() string {
	if s.parent == nil {
		return ""
	}
	if s.key.kind == childKeyObject {
		return s.key.name
	}
	if i, ok := s.index(); ok {
		return strconv.Itoa(i)
	}
	return s.key.String()
}

// newChildren builds the reconciling child-set computation for f. It reads
// the field's value and diffs the derived keys against the previous set:
// keys that survive keep their FieldNode (and with it all per-field state),
// new keys get fresh nodes, and vanished keys simply drop out. Orphaned
// nodes are destroyed afterwards by the form's sweep, not here.
func newChildren(f *FieldNode) *signals.Computed[childSet] {
	g := f.form.graph
	return signals.ReduceEq(g, func(prev childSet, ok bool) childSet {
		v := f.structure.value()
		keys := childKeysOf(f.form, v)
		if len(keys) == 0 {
			return childSet{}
		}
		next := childSet{byKey: make(map[childKey]*FieldNode, len(keys))}
		for _, key := range keys {
			lookup := key
			if key.kind == childKeyIdentity {
				lookup.index = 0
			}
			var n *FieldNode
			if ok {
				n = prev.byKey[lookup]
			}
			if n != nil && n.structure.orphaned {
				n = nil
			}
			if n == nil {
				n = newFieldNode(f.form, f, lookup)
			}
			next.byKey[lookup] = n
			next.order = append(next.order, n)
		}
		return next
	}, sameChildSet)
}

// sameChildSet suppresses downstream invalidation when reconciliation
// reproduces the identical node sequence.
func sameChildSet(a, b childSet) bool {
	if len(a.order) != len(b.order) {
		return false
	}
	for i := range a.order {
		if a.order[i] != b.order[i] {
			return false
		}
	}
	return true
}

// childKeysOf derives the child keys of a value: named keys for maps (in
// sorted order, so iteration is deterministic), identity or positional keys
// for array elements, nothing for leaves.
func childKeysOf(form *Form, v any) []childKey {
	switch t := v.(type) {
	case map[string]any:
		names := make([]string, 0, len(t))
		for k := range t {
			names = append(names, k)
		}
		sort.Strings(names)
		keys := make([]childKey, len(names))
		for i, k := range names {
			keys[i] = childKey{kind: childKeyObject, name: k}
		}
		return keys
	case []any:
		keys := make([]childKey, len(t))
		for i, elem := range t {
			if tag, ok := form.identities.tagFor(elem); ok {
				keys[i] = childKey{kind: childKeyIdentity, name: tag, index: i}
			} else {
				keys[i] = childKey{kind: childKeyIndex, index: i}
			}
		}
		return keys
	}
	return nil
}
