package sigform

import (
	"context"

	"go.uber.org/zap"
)

// SubmitAction performs the actual submission. It receives the submitted
// field and may return field-targeted errors reported by the server; an
// untargeted error attaches to the submitted field. A non-nil Go error
// aborts the submit without touching field state.
type SubmitAction func(ctx context.Context, field *FieldNode) ([]FieldError, error)

// Submit runs the submit flow for this field's subtree: every field in it is
// marked touched so all errors become visible, and if the subtree is not
// known valid the submit is a silent no-op. Otherwise the action runs with
// the field's submitting flag raised; errors it reports are attached to
// their target fields as server errors, which stay in force until the
// target's value changes.
func (f *FieldNode) Submit(ctx context.Context, action SubmitAction) error {
	if action == nil {
		panic("sigform: Submit: nil action")
	}
	form := f.form
	form.mu.Lock()
	f.markTouchedTree()
	if st := f.statusC.Get(); st != StatusValid {
		form.log.Debug("submit skipped",
			zap.String("field", f.nameLocked()), zap.Stringer("status", st))
		form.mu.Unlock()
		return nil
	}
	f.selfSubmitting.Set(true)
	form.mu.Unlock()
	defer func() {
		form.mu.Lock()
		f.selfSubmitting.Set(false)
		form.mu.Unlock()
	}()

	form.log.Debug("submit started", zap.String("field", f.Name()))
	fieldErrs, err := action(ctx, f)
	if err != nil {
		form.log.Debug("submit failed", zap.String("field", f.Name()), zap.Error(err))
		return err
	}
	if len(fieldErrs) > 0 {
		f.applyServerErrors(fieldErrs)
	}
	form.log.Debug("submit finished",
		zap.String("field", f.Name()),
		zap.Int("serverErrors", len(fieldErrs)))
	return nil
}

// Submit submits the whole form, equivalent to form.Root().Submit.
func (f *Form) Submit(ctx context.Context, action SubmitAction) error {
	return f.Root().Submit(ctx, action)
}

// applyServerErrors groups reported errors by target field and installs
// each group on its target's linked server-error signal. Untargeted errors
// land on the submitted field.
func (f *FieldNode) applyServerErrors(errs []FieldError) {
	f.form.mu.Lock()
	defer f.form.mu.Unlock()
	groups := make(map[*FieldNode][]FieldError)
	var order []*FieldNode
	for _, e := range errs {
		if e.Kind == "" {
			e.Kind = KindServer
		}
		target := e.Field
		if target == nil {
			target = f
		}
		e.Field = target
		if _, seen := groups[target]; !seen {
			order = append(order, target)
		}
		groups[target] = append(groups[target], e)
	}
	for _, target := range order {
		target.serverErrors.Set(groups[target])
	}
}
