package sigform

// ControlStatus is the coarse status vocabulary of classic form-control
// APIs. Disablement wins over validity, matching how those APIs exclude
// disabled controls from validation.
type ControlStatus string

const (
	ControlValid    ControlStatus = "VALID"
	ControlInvalid  ControlStatus = "INVALID"
	ControlDisabled ControlStatus = "DISABLED"
	ControlPending  ControlStatus = "PENDING"
)

// Control adapts a FieldNode to the shape of a classic imperative form
// control, for wiring fields into UI layers built against that vocabulary.
// A Control holds no state of its own; every method delegates to the field.
type Control struct {
	node *FieldNode
}

// AsControl wraps f in a control adapter and records it on the field. The
// same field may back any number of controls.
func AsControl(f *FieldNode) *Control {
	if f == nil {
		panic("sigform: AsControl: nil field")
	}
	c := &Control{node: f}
	f.form.mu.Lock()
	f.controls = append(f.controls, c)
	f.form.mu.Unlock()
	return c
}

// Field returns the underlying field.
func (c *Control) Field() *FieldNode { return c.node }

// Value returns the field's current value.
func (c *Control) Value() any { return c.node.Value() }

// SetValue writes the field's value and marks it dirty.
func (c *Control) SetValue(v any) { c.node.SetValue(v) }

// Status maps the field's state to the classic control status: DISABLED
// when disabled, read-only or hidden, PENDING while async validation is in
// flight, otherwise VALID or INVALID.
func (c *Control) Status() ControlStatus {
	f := c.node
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	if f.skipped() {
		return ControlDisabled
	}
	switch f.statusC.Get() {
	case StatusInvalid:
		return ControlInvalid
	case StatusUnknown:
		return ControlPending
	}
	return ControlValid
}

// Errors returns the field's errors keyed by kind, the classic errors-map
// shape. The value is the error's Params when present, its message
// otherwise. Nil when there are no errors.
func (c *Control) Errors() map[string]any {
	errs := c.node.Errors()
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]any, len(errs))
	for _, e := range errs {
		if _, taken := out[e.Kind]; taken {
			continue
		}
		if e.Params != nil {
			out[e.Kind] = e.Params
		} else {
			out[e.Kind] = e.Message
		}
	}
	return out
}

// HasError reports whether an error of the given kind is present.
func (c *Control) HasError(kind string) bool { return c.node.Errors().Has(kind) }

// HasValidator reports whether a validator of the given kind is active on
// the field. Only "required" can be answered from declared state; other
// kinds report true only when a matching error is currently present.
func (c *Control) HasValidator(kind string) bool {
	if kind == KindRequired {
		return c.node.Required()
	}
	return c.node.Errors().Has(kind)
}

// Touched reports whether the field has been touched.
func (c *Control) Touched() bool { return c.node.Touched() }

// Dirty reports whether the field has been edited.
func (c *Control) Dirty() bool { return c.node.Dirty() }

// Pristine is the inverse of Dirty.
func (c *Control) Pristine() bool { return !c.node.Dirty() }

// Enabled reports whether the control accepts input.
func (c *Control) Enabled() bool { return c.Status() != ControlDisabled }

// MarkAsTouched marks the field as touched.
func (c *Control) MarkAsTouched() { c.node.MarkAsTouched() }

// MarkAsPristine clears touched and dirty on the field's subtree.
func (c *Control) MarkAsPristine() { c.node.Reset() }

// UpdateValueAndValidity exists for call-site compatibility. Validity is
// recomputed reactively on every read, so there is nothing to do.
func (c *Control) UpdateValueAndValidity() {}

// Controls returns the control adapters registered on the field.
func (f *FieldNode) Controls() []*Control {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	return append([]*Control(nil), f.controls...)
}
