// Package sigform is a reactive form engine: schemas declare validation and
// UI logic against a path tree, and a Form materializes that logic over
// plain data (maps, slices, primitives) as a lazily built tree of fields.
//
// Field state — validity, errors, hidden/disabled/read-only, touched,
// dirty, pending async validation — is computed on demand and memoized;
// a read recomputes exactly the state invalidated by writes since the last
// read. Schemas compose with Apply and its conditional variants, and may
// reference themselves to validate recursive data.
//
// A minimal form:
//
//	schema := sigform.SchemaOf(func(p *sigform.FieldPath) {
//		sigform.Required(p.Child("name"))
//		sigform.Min(p.Child("age"), 18)
//	})
//	form := sigform.New(map[string]any{"name": "", "age": 17.0}, schema)
//	form.Root().Child("age").Errors() // min error
package sigform
