package sigform

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/reoring/sigform/signals"
)

// Status is a field's validity. A field is StatusUnknown while asynchronous
// validation is still in flight anywhere in its subtree.
type Status int

const (
	StatusValid Status = iota
	StatusInvalid
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	}
	return "unknown"
}

// FieldNode is one field of a live form: a position in the data tree
// combined with the validation logic bound there and the per-field
// interaction state. Nodes are created lazily as the data is traversed and
// survive value changes; array elements additionally survive reordering
// through identity tracking.
//
// All exported methods lock the owning form and are safe for concurrent
// use. Rule functions must not call them; inside a rule, use the
// FieldContext instead.
type FieldNode struct {
	form      *Form
	structure *fieldStructure
	logics    []boundLogic
	resources []*resource
	controls  []*Control

	selfTouched    *signals.Signal[bool]
	selfDirty      *signals.Signal[bool]
	selfSubmitting *signals.Signal[bool]

	serverErrors *signals.Linked[[]FieldError]

	hiddenC   *signals.Computed[bool]
	readonlyC *signals.Computed[bool]
	disabledC *signals.Computed[[]DisabledReason]
	syncErrs  *signals.Computed[[]FieldError]
	treeErrs  *signals.Computed[[]FieldError]
	asyncC    *signals.Computed[asyncState]
	errsC     *signals.Computed[FieldErrorList]
	statusC   *signals.Computed[Status]
	touchedC    *signals.Computed[bool]
	dirtyC      *signals.Computed[bool]
	submittingC *signals.Computed[bool]
	summaryC    *signals.Computed[FieldErrorList]
}

// asyncState folds a field's async validators into one observable value.
type asyncState struct {
	errs    []FieldError
	pending bool
}

func newFieldNode(form *Form, parent *FieldNode, key childKey) *FieldNode {
	f := &FieldNode{form: form}
	f.structure = &fieldStructure{form: form, node: f, parent: parent, key: key}
	if parent == nil {
		f.logics = rootLogics(form.rootBuilder)
	} else {
		f.logics = childLogics(parent.logics, key)
	}
	g := form.graph

	f.selfTouched = signals.New(g, false)
	f.selfDirty = signals.New(g, false)
	f.selfSubmitting = signals.New(g, false)
	f.structure.children = newChildren(f)

	f.hiddenC = signals.Compute(g, func() bool {
		if parent != nil && parent.hiddenC.Get() {
			return true
		}
		return f.anyRule(func(r *localRules) []func(*FieldContext) bool { return r.hidden })
	})
	f.readonlyC = signals.Compute(g, func() bool {
		if parent != nil && parent.readonlyC.Get() {
			return true
		}
		return f.anyRule(func(r *localRules) []func(*FieldContext) bool { return r.readonly })
	})
	f.disabledC = signals.Compute(g, func() []DisabledReason {
		var out []DisabledReason
		if parent != nil {
			out = append(out, parent.disabledC.Get()...)
		}
		for _, bl := range f.logics {
			if len(bl.b.rules.disabled) == 0 || !f.gatesPass(bl) {
				continue
			}
			c := f.evalCtx(bl)
			for _, fn := range bl.b.rules.disabled {
				out = append(out, fn(c)...)
			}
		}
		return out
	})

	f.syncErrs = signals.Compute(g, func() []FieldError {
		if f.skipped() {
			return nil
		}
		var out []FieldError
		for _, bl := range f.logics {
			if len(bl.b.rules.syncErrors) == 0 || !f.gatesPass(bl) {
				continue
			}
			c := f.evalCtx(bl)
			for _, fn := range bl.b.rules.syncErrors {
				out = append(out, stampField(fn(c), f)...)
			}
		}
		return out
	})
	f.treeErrs = signals.Compute(g, func() []FieldError {
		if f.skipped() {
			return nil
		}
		var out []FieldError
		for _, bl := range f.logics {
			if len(bl.b.rules.treeErrors) == 0 || !f.gatesPass(bl) {
				continue
			}
			c := f.evalCtx(bl)
			for _, fn := range bl.b.rules.treeErrors {
				out = append(out, stampField(fn(c), f)...)
			}
		}
		return out
	})

	f.serverErrors = signals.NewLinked(g,
		func() any { return f.structure.value() },
		func() []FieldError { return nil })

	for _, bl := range f.logics {
		for _, av := range bl.b.rules.async {
			f.resources = append(f.resources, newResource(f, bl, av))
		}
	}
	f.asyncC = signals.Compute(g, func() asyncState {
		var st asyncState
		for _, r := range f.resources {
			r.poll()
			if r.pending() {
				st.pending = true
			}
			st.errs = append(st.errs, stampField(r.errors(), f)...)
		}
		return st
	})

	f.errsC = signals.Compute(g, func() FieldErrorList {
		if f.skipped() {
			return nil
		}
		var out FieldErrorList
		out = append(out, f.syncErrs.Get()...)
		out = append(out, f.serverErrors.Get()...)
		for n := f; n != nil; n = n.structure.parent {
			for _, e := range n.treeErrs.Get() {
				if e.Field == f {
					out = append(out, e)
				}
			}
			for _, e := range n.asyncC.Get().errs {
				if e.Field == f {
					out = append(out, e)
				}
			}
		}
		return out
	})

	f.statusC = signals.Compute(g, func() Status {
		if f.skipped() {
			return StatusValid
		}
		if len(f.errsC.Get()) > 0 {
			return StatusInvalid
		}
		st := StatusValid
		if f.asyncC.Get().pending {
			st = StatusUnknown
		}
		for _, c := range f.structure.children.Get().order {
			switch c.statusC.Get() {
			case StatusInvalid:
				return StatusInvalid
			case StatusUnknown:
				st = StatusUnknown
			}
		}
		return st
	})

	f.touchedC = signals.Compute(g, func() bool {
		if f.selfTouched.Get() {
			return true
		}
		for _, c := range f.structure.children.Get().order {
			if !c.skipped() && c.touchedC.Get() {
				return true
			}
		}
		return false
	})
	f.dirtyC = signals.Compute(g, func() bool {
		if f.selfDirty.Get() {
			return true
		}
		for _, c := range f.structure.children.Get().order {
			if !c.skipped() && c.dirtyC.Get() {
				return true
			}
		}
		return false
	})

	f.submittingC = signals.Compute(g, func() bool {
		if f.selfSubmitting.Get() {
			return true
		}
		return parent != nil && parent.submittingC.Get()
	})

	f.summaryC = signals.Compute(g, func() FieldErrorList {
		var out FieldErrorList
		out = append(out, f.errsC.Get()...)
		for _, c := range f.structure.children.Get().order {
			out = append(out, c.summaryC.Get()...)
		}
		return out
	})

	form.nodes[f] = struct{}{}
	return f
}

// ---- internal rule evaluation ----

// anyRule reports whether any gated boolean rule from pick fires.
func (f *FieldNode) anyRule(pick func(*localRules) []func(*FieldContext) bool) bool {
	for _, bl := range f.logics {
		fns := pick(&bl.b.rules)
		if len(fns) == 0 || !f.gatesPass(bl) {
			continue
		}
		c := f.evalCtx(bl)
		for _, fn := range fns {
			if fn(c) {
				return true
			}
		}
	}
	return false
}

// gatesPass evaluates the applyWhen predicates guarding bl against this
// field. A predicate whose target field is absent from the data fails.
func (f *FieldNode) gatesPass(bl boundLogic) bool {
	for _, p := range bl.preds {
		target := resolveField(f, p.depth, p.path)
		if target == nil {
			return false
		}
		if !p.fn(&FieldContext{node: target, depth: p.path.depth()}) {
			return false
		}
	}
	return true
}

func (f *FieldNode) evalCtx(bl boundLogic) *FieldContext {
	return &FieldContext{node: f, depth: bl.depth}
}

// logicContains reports whether the given schema-root builder was applied
// at this field, directly or through merges.
func (f *FieldNode) logicContains(b *logicBuilder) bool {
	for _, bl := range f.logics {
		if bl.depth == 0 && bl.b.contains(b) {
			return true
		}
	}
	return false
}

// skipped reports whether the field is excluded from validation.
func (f *FieldNode) skipped() bool {
	return f.hiddenC.Get() || f.readonlyC.Get() || len(f.disabledC.Get()) > 0
}

func (f *FieldNode) childByName(name string) *FieldNode {
	return f.structure.children.Get().byKey[childKey{kind: childKeyObject, name: name}]
}

func (f *FieldNode) childByIndex(i int) *FieldNode {
	order := f.structure.children.Get().order
	if i < 0 || i >= len(order) {
		return nil
	}
	return order[i]
}

// nameLocked builds the field's dotted name. Callers hold the form lock or
// run inside the engine.
func (f *FieldNode) nameLocked() string {
	var segs []string
	for n := f; n != nil; n = n.structure.parent {
		if n.structure.parent == nil {
			segs = append(segs, n.form.name)
		} else {
			segs = append(segs, n.structure.keyString())
		}
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, ".")
}

func (f *FieldNode) markTouchedTree() {
	f.selfTouched.Set(true)
	for _, c := range f.structure.children.Peek().order {
		c.markTouchedTree()
	}
}

func (f *FieldNode) resetTree() {
	f.selfTouched.Set(false)
	f.selfDirty.Set(false)
	for _, c := range f.structure.children.Peek().order {
		c.resetTree()
	}
}

// destroy is called by the form sweep after the field's key vanished from
// the data. Any later use of the node panics.
func (f *FieldNode) destroy() {
	f.structure.orphaned = true
	for _, r := range f.resources {
		r.stop()
	}
	delete(f.form.nodes, f)
}

// ---- public API ----

// Value returns the field's current value.
func (f *FieldNode) Value() any {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.structure.value()
}

// SetValue writes the field's value and marks it dirty. The write rebuilds
// the spine of the data tree; sibling values keep their identity.
func (f *FieldNode) SetValue(v any) {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	f.form.log.Debug("field value set", zap.String("field", f.nameLocked()))
	f.structure.setValue(v)
	f.selfDirty.Set(true)
}

// Child returns the named child field, or nil when the key is absent from
// the current data.
func (f *FieldNode) Child(name string) *FieldNode {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.childByName(name)
}

// At returns the i-th element field of an array value, or nil when out of
// range.
func (f *FieldNode) At(i int) *FieldNode {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.childByIndex(i)
}

// Len returns the number of child fields.
func (f *FieldNode) Len() int {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return len(f.structure.children.Get().order)
}

// Children returns the child fields in order: sorted keys for objects,
// positional for arrays.
func (f *FieldNode) Children() []*FieldNode {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	order := f.structure.children.Get().order
	return append([]*FieldNode(nil), order...)
}

// Name returns the field's dotted name, rooted at the form name.
func (f *FieldNode) Name() string {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.nameLocked()
}

// Errors returns the validation errors attached to this field: its own
// synchronous errors, server errors still in force, and any tree or async
// errors targeted at it from ancestor rules. Skipped fields have none.
func (f *FieldNode) Errors() FieldErrorList {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.errsC.Get()
}

// ErrorSummary returns every error in the field's subtree, depth-first.
func (f *FieldNode) ErrorSummary() FieldErrorList {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.summaryC.Get()
}

// Status returns the field's validity, folding in its whole subtree.
func (f *FieldNode) Status() Status {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.statusC.Get()
}

// Valid reports whether the subtree is known valid.
func (f *FieldNode) Valid() bool { return f.Status() == StatusValid }

// Invalid reports whether the subtree has at least one error.
func (f *FieldNode) Invalid() bool { return f.Status() == StatusInvalid }

// Pending reports whether asynchronous validation is in flight somewhere in
// the subtree.
func (f *FieldNode) Pending() bool { return f.Status() == StatusUnknown }

// Touched reports whether this field or any descendant has been touched.
func (f *FieldNode) Touched() bool {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.touchedC.Get()
}

// Dirty reports whether this field or any descendant has been edited.
func (f *FieldNode) Dirty() bool {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.dirtyC.Get()
}

// Hidden reports whether the field is hidden, directly or by an ancestor.
func (f *FieldNode) Hidden() bool {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.hiddenC.Get()
}

// ReadOnly reports whether the field is read-only, directly or by an
// ancestor.
func (f *FieldNode) ReadOnly() bool {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.readonlyC.Get()
}

// Disabled reports whether any disablement reason applies.
func (f *FieldNode) Disabled() bool { return len(f.DisabledReasons()) > 0 }

// DisabledReasons returns the accumulated disablement reasons, the field's
// own and its ancestors'.
func (f *FieldNode) DisabledReasons() []DisabledReason {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.disabledC.Get()
}

// MarkAsTouched marks the field itself as touched.
func (f *FieldNode) MarkAsTouched() {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	f.selfTouched.Set(true)
}

// MarkAsDirty marks the field itself as dirty.
func (f *FieldNode) MarkAsDirty() {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	f.selfDirty.Set(true)
}

// Reset clears touched and dirty on the field and its whole subtree.
// Values and validation state are unaffected; Reset is idempotent.
func (f *FieldNode) Reset() {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	f.resetTree()
}

// Submitting reports whether this field or an ancestor is inside a submit.
func (f *FieldNode) Submitting() bool {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.submittingC.Get()
}

// ---- aggregate metadata getters ----

// Required reports whether any active rule declares the field required.
func (f *FieldNode) Required() bool {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	v, ok := f.metadataValue(KeyRequired)
	return ok && v.(bool)
}

// Min returns the effective minimum over all active Min rules.
func (f *FieldNode) Min() (float64, bool) {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	v, ok := f.metadataValue(KeyMin)
	if !ok || v == nil {
		return 0, false
	}
	return v.(float64), true
}

// Max returns the effective maximum over all active Max rules.
func (f *FieldNode) Max() (float64, bool) {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	v, ok := f.metadataValue(KeyMax)
	if !ok || v == nil {
		return 0, false
	}
	return v.(float64), true
}

// MinLength returns the effective minimum length over all active rules.
func (f *FieldNode) MinLength() (int, bool) {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	v, ok := f.metadataValue(KeyMinLength)
	if !ok || v == nil {
		return 0, false
	}
	return v.(int), true
}

// MaxLength returns the effective maximum length over all active rules.
func (f *FieldNode) MaxLength() (int, bool) {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	v, ok := f.metadataValue(KeyMaxLength)
	if !ok || v == nil {
		return 0, false
	}
	return v.(int), true
}

// Patterns returns the patterns declared by all active Pattern rules.
func (f *FieldNode) Patterns() []*regexp.Regexp {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	v, ok := f.metadataValue(KeyPattern)
	if !ok {
		return nil
	}
	return v.([]*regexp.Regexp)
}

// Aggregate returns the reduced value of a custom aggregate key. ok is
// false when no active rule contributed.
func (f *FieldNode) Aggregate(key *AggregateKey) (any, bool) {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return f.metadataValue(key)
}
