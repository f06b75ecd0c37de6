package sigform_test

import (
	"fmt"
	"testing"

	"github.com/reoring/sigform"
)

func benchForm(fields int) *sigform.Form {
	data := make(map[string]any, fields)
	for i := 0; i < fields; i++ {
		data[fmt.Sprintf("f%d", i)] = "value"
	}
	schema := sigform.SchemaOf(func(p *sigform.FieldPath) {
		for i := 0; i < fields; i++ {
			f := p.Child(fmt.Sprintf("f%d", i))
			sigform.Required(f)
			sigform.MinLength(f, 2)
		}
	})
	return sigform.New(data, schema)
}

func BenchmarkWriteThenValidate(b *testing.B) {
	form := benchForm(50)
	target := form.Root().Child("f0")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		target.SetValue(fmt.Sprintf("v%d", i))
		if target.Invalid() {
			b.Fatalf("unexpectedly invalid")
		}
	}
}

// Repeated reads without writes must hit the memoized state.
func BenchmarkStatusRead(b *testing.B) {
	form := benchForm(50)
	root := form.Root()
	root.Status()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if root.Status() != sigform.StatusValid {
			b.Fatalf("unexpected status")
		}
	}
}

func BenchmarkErrorSummary(b *testing.B) {
	data := map[string]any{"items": func() []any {
		items := make([]any, 20)
		for i := range items {
			items[i] = map[string]any{"sku": ""}
		}
		return items
	}()}
	item := sigform.SchemaOf(func(p *sigform.FieldPath) {
		sigform.Required(p.Child("sku"))
	})
	schema := sigform.SchemaOf(func(p *sigform.FieldPath) {
		sigform.ApplyEach(p.Child("items"), item)
	})
	form := sigform.New(data, schema)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(form.Root().ErrorSummary()) != 20 {
			b.Fatalf("unexpected summary size")
		}
	}
}
