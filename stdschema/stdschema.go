// Package stdschema binds standard JSON Schema documents to sigform paths:
// a compiled schema document becomes a tree-validation rule whose errors
// attach to the exact descendant field each schema violation points at.
// Schema documents can be supplied as JSON or YAML.
package stdschema

import (
	"context"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/reoring/sigform"
)

// Rule is a compiled JSON Schema ready to be bound to form paths with
// Validate or ValidateAsync. A Rule is immutable and may be bound to any
// number of paths across any number of schemas.
type Rule struct {
	schema *jsonschema.Schema
}

const resourceURL = "schema.json"

var printer = message.NewPrinter(language.English)

// CompileJSON compiles a JSON Schema document from its JSON encoding.
func CompileJSON(data []byte) (*Rule, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return compileDoc(doc)
}

// CompileYAML compiles a JSON Schema document written in YAML.
func CompileYAML(data []byte) (*Rule, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	norm, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	return compileDoc(norm)
}

// MustCompileJSON is CompileJSON that panics on error, for schema documents
// embedded in the program.
func MustCompileJSON(data []byte) *Rule {
	r, err := CompileJSON(data)
	if err != nil {
		panic("stdschema: MustCompileJSON: " + err.Error())
	}
	return r
}

func compileDoc(doc any) (*Rule, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, err
	}
	sch, err := c.Compile(resourceURL)
	if err != nil {
		return nil, err
	}
	return &Rule{schema: sch}, nil
}

// issue is one leaf schema violation with its location inside the
// validated value.
type issue struct {
	loc []string
	msg string
}

// check validates v against the rule and returns the leaf violations.
func (r *Rule) check(v any) []issue {
	norm, err := normalize(v)
	if err != nil {
		return []issue{{msg: err.Error()}}
	}
	verr := r.schema.Validate(norm)
	if verr == nil {
		return nil
	}
	ve, ok := verr.(*jsonschema.ValidationError)
	if !ok {
		return []issue{{msg: verr.Error()}}
	}
	var out []issue
	collectLeaves(ve, &out)
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]issue) {
	if len(ve.Causes) == 0 {
		*out = append(*out, issue{
			loc: ve.InstanceLocation,
			msg: ve.ErrorKind.LocalizedString(printer),
		})
		return
	}
	for _, c := range ve.Causes {
		collectLeaves(c, out)
	}
}

// normalize round-trips a value through JSON so the validator sees JSON
// types only: numbers become float64, typed maps and structs become
// map[string]any, and so on.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate binds the rule to path as a synchronous tree rule. Each schema
// violation becomes an error on the descendant field its instance location
// points at; violations whose location has no materialized field attach to
// the bound field itself.
func Validate(path *sigform.FieldPath, r *Rule) {
	if r == nil {
		panic("stdschema: Validate: nil rule")
	}
	sigform.ValidateTree(path, func(c *sigform.FieldContext) []sigform.FieldError {
		return toFieldErrors(r.check(c.Value()), c)
	})
}

// ValidateAsync binds the rule to path with the validation work performed
// off the calling goroutine, for large documents or large values. The field
// reports pending status while a check is in flight.
func ValidateAsync(path *sigform.FieldPath, r *Rule) {
	if r == nil {
		panic("stdschema: ValidateAsync: nil rule")
	}
	sigform.ValidateAsync(path, sigform.AsyncValidator{
		Load: func(ctx context.Context, params any) (any, error) {
			return r.check(params), ctx.Err()
		},
		OnSettled: func(result any, c *sigform.FieldContext) []sigform.FieldError {
			return toFieldErrors(result.([]issue), c)
		},
	})
}

func toFieldErrors(issues []issue, c *sigform.FieldContext) []sigform.FieldError {
	if len(issues) == 0 {
		return nil
	}
	out := make([]sigform.FieldError, 0, len(issues))
	for _, is := range issues {
		e := sigform.FieldError{
			Kind:    sigform.KindStandardSchema,
			Message: is.msg,
		}
		if target := resolveTarget(c, is.loc); target != nil {
			e.Field = target.Field()
		}
		if len(is.loc) > 0 {
			e.Params = map[string]any{"location": pointerString(is.loc)}
		}
		out = append(out, e)
	}
	return out
}

// resolveTarget walks instance-location tokens down the field tree.
// Returns nil when the located field is not materialized in the data.
func resolveTarget(c *sigform.FieldContext, loc []string) *sigform.FieldContext {
	cur := c
	for _, tok := range loc {
		if cur == nil {
			return nil
		}
		if i, err := strconv.Atoi(tok); err == nil {
			if at := cur.At(i); at != nil {
				cur = at
				continue
			}
		}
		cur = cur.Child(tok)
	}
	return cur
}

func pointerString(loc []string) string {
	s := ""
	for _, tok := range loc {
		s += "/" + tok
	}
	return s
}
