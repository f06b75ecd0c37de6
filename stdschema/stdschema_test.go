package stdschema_test

import (
	"testing"

	"github.com/reoring/sigform"
	"github.com/reoring/sigform/stdschema"
)

const personJSON = `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"age":  {"type": "number", "minimum": 18}
	},
	"required": ["name"]
}`

const personYAML = `
type: object
properties:
  name:
    type: string
    minLength: 1
  age:
    type: number
    minimum: 18
required: [name]
`

func personForm(t *testing.T, rule *stdschema.Rule, data map[string]any) *sigform.Form {
	t.Helper()
	return sigform.New(data, sigform.SchemaOf(func(p *sigform.FieldPath) {
		stdschema.Validate(p, rule)
	}))
}

func TestCompileJSONRejectsGarbage(t *testing.T) {
	if _, err := stdschema.CompileJSON([]byte(`{"type": 42}`)); err == nil {
		t.Fatalf("expected compile error for invalid schema document")
	}
	if _, err := stdschema.CompileJSON([]byte(`not json`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestViolationsAttachToLocatedFields(t *testing.T) {
	rule, err := stdschema.CompileJSON([]byte(personJSON))
	if err != nil {
		t.Fatalf("CompileJSON: %v", err)
	}
	form := personForm(t, rule, map[string]any{"name": "ann", "age": 10.0})

	age := form.Root().Child("age")
	if !age.Errors().Has(sigform.KindStandardSchema) {
		t.Fatalf("age: want schema violation, got %v", age.Errors())
	}
	if form.Root().Errors().Has(sigform.KindStandardSchema) {
		t.Fatalf("located violation must not also attach to the bound field")
	}
	if form.Root().Status() != sigform.StatusInvalid {
		t.Fatalf("root status = %v, want invalid", form.Root().Status())
	}

	age.SetValue(20.0)
	if len(age.Errors()) != 0 {
		t.Fatalf("after fix: got %v", age.Errors())
	}
	if form.Root().Status() != sigform.StatusValid {
		t.Fatalf("root status after fix = %v, want valid", form.Root().Status())
	}
}

func TestObjectLevelViolationAttachesToBoundField(t *testing.T) {
	rule, err := stdschema.CompileJSON([]byte(personJSON))
	if err != nil {
		t.Fatalf("CompileJSON: %v", err)
	}
	form := personForm(t, rule, map[string]any{"age": 30.0})

	if !form.Root().Errors().Has(sigform.KindStandardSchema) {
		t.Fatalf("missing required property should attach to the bound field, got %v", form.Root().Errors())
	}
}

func TestCompileYAML(t *testing.T) {
	rule, err := stdschema.CompileYAML([]byte(personYAML))
	if err != nil {
		t.Fatalf("CompileYAML: %v", err)
	}
	form := personForm(t, rule, map[string]any{"name": "", "age": 30.0})

	name := form.Root().Child("name")
	if !name.Errors().Has(sigform.KindStandardSchema) {
		t.Fatalf("name: want minLength violation, got %v", name.Errors())
	}
}

func TestArrayLocations(t *testing.T) {
	rule, err := stdschema.CompileJSON([]byte(`{
		"type": "object",
		"properties": {
			"tags": {"type": "array", "items": {"type": "string"}}
		}
	}`))
	if err != nil {
		t.Fatalf("CompileJSON: %v", err)
	}
	form := personForm(t, rule, map[string]any{"tags": []any{"ok", 7.0}})

	bad := form.Root().Child("tags").At(1)
	if !bad.Errors().Has(sigform.KindStandardSchema) {
		t.Fatalf("tags[1]: want type violation, got %v", bad.Errors())
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	stdschema.MustCompileJSON([]byte(`{"type": 42}`))
}
