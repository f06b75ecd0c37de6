package sigform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/reoring/sigform"
)

func signupSchema() *sigform.Schema {
	return sigform.SchemaOf(func(p *sigform.FieldPath) {
		sigform.Required(p.Child("name"))
		sigform.Required(p.Child("email"))
	})
}

func TestSubmitInvalidIsSilentNoOp(t *testing.T) {
	form := sigform.New(map[string]any{"name": "", "email": "a@b.co"}, signupSchema())
	ran := false
	err := form.Submit(context.Background(), func(ctx context.Context, root *sigform.FieldNode) ([]sigform.FieldError, error) {
		ran = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Submit returned %v, want nil", err)
	}
	if ran {
		t.Fatalf("action ran on an invalid form")
	}
	// the attempt still reveals all errors
	if !form.Root().Child("name").Touched() || !form.Root().Child("email").Touched() {
		t.Fatalf("submit did not touch the whole tree")
	}
}

func TestSubmitRunsActionAndFlagsSubmitting(t *testing.T) {
	form := sigform.New(map[string]any{"name": "ann", "email": "a@b.co"}, signupSchema())
	if form.Submitting() {
		t.Fatalf("Submitting before submit")
	}
	var during bool
	err := form.Submit(context.Background(), func(ctx context.Context, root *sigform.FieldNode) ([]sigform.FieldError, error) {
		during = form.Submitting()
		if got := root.Child("name").Value(); got != "ann" {
			t.Errorf("action sees %v, want ann", got)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !during {
		t.Fatalf("Submitting was false inside the action")
	}
	if form.Submitting() {
		t.Fatalf("Submitting still true after submit")
	}
}

func TestSubmitOnSubtree(t *testing.T) {
	schema := sigform.SchemaOf(func(p *sigform.FieldPath) {
		sigform.Required(p.Child("billing").Child("card"))
		sigform.Required(p.Child("name"))
	})
	form := sigform.New(map[string]any{
		"name":    "", // invalid, but outside the submitted subtree
		"billing": map[string]any{"card": "4111", "note": "x"},
	}, schema)

	billing := form.Root().Child("billing")
	var during, sibling, child bool
	err := billing.Submit(context.Background(), func(ctx context.Context, field *sigform.FieldNode) ([]sigform.FieldError, error) {
		during = field.Submitting()
		child = field.Child("card").Submitting()
		sibling = form.Root().Child("name").Submitting()
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !during || !child {
		t.Fatalf("submitting not visible in subtree: self=%v child=%v", during, child)
	}
	if sibling {
		t.Fatalf("submitting leaked outside the submitted subtree")
	}
	if form.Root().Child("name").Touched() {
		t.Fatalf("subtree submit touched fields outside the subtree")
	}
	if !billing.Child("card").Touched() {
		t.Fatalf("subtree submit did not touch its own fields")
	}
}

func TestSubmitPropagatesActionError(t *testing.T) {
	form := sigform.New(map[string]any{"name": "ann", "email": "a@b.co"}, signupSchema())
	boom := errors.New("network down")
	err := form.Submit(context.Background(), func(ctx context.Context, root *sigform.FieldNode) ([]sigform.FieldError, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Submit returned %v, want the action error", err)
	}
	if form.Submitting() {
		t.Fatalf("Submitting stuck after failed submit")
	}
}

func TestServerErrorsAttachAndResetOnEdit(t *testing.T) {
	form := sigform.New(map[string]any{"name": "ann", "email": "a@b.co"}, signupSchema())
	err := form.Submit(context.Background(), func(ctx context.Context, root *sigform.FieldNode) ([]sigform.FieldError, error) {
		e := sigform.ServerError("name already registered")
		e.Field = root.Child("name")
		return []sigform.FieldError{e, sigform.ServerError("quota exceeded")}, nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	name := form.Root().Child("name")
	if !name.Errors().Has(sigform.KindServer) {
		t.Fatalf("name: want server error, got %v", name.Errors())
	}
	if !form.Root().Errors().Has(sigform.KindServer) {
		t.Fatalf("untargeted server error should attach to the root")
	}
	if name.Valid() {
		t.Fatalf("field with server error should be invalid")
	}

	// editing the field clears its server errors; the write also rebuilds
	// the root value, so the form-level server error resets with it
	name.SetValue("bea")
	if name.Errors().Has(sigform.KindServer) {
		t.Fatalf("server error survived a value edit: %v", name.Errors())
	}
	if form.Root().Errors().Has(sigform.KindServer) {
		t.Fatalf("root server error survived an edit: %v", form.Root().Errors())
	}
}
