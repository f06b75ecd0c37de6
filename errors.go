package sigform

import (
	"fmt"
	"regexp"
	"strings"
)

// Error kinds (exported consts for IDE completion and type safety by convention)
const (
	KindRequired       = "required"
	KindMin            = "min"
	KindMax            = "max"
	KindMinLength      = "minLength"
	KindMaxLength      = "maxLength"
	KindPattern        = "pattern"
	KindEmail          = "email"
	KindStandardSchema = "standardSchema"
	KindServer         = "server"
	KindAsync          = "async"
	KindCustom         = "custom"
)

// FieldError is a single validation error. Errors are ordinary values
// produced by the rule engine, not Go errors: they flow into Field.Errors()
// and are cleared by the engine as the data changes.
type FieldError struct {
	Kind    string
	Message string
	// Field is the field the error is attached to. The engine stamps it
	// exactly once, at the point the rule's result is captured, when the
	// rule did not set an explicit target.
	Field *FieldNode
	// Params carries kind-specific payload (e.g. {"min": 18}) for UI
	// rendering and observability.
	Params map[string]any
}

// FieldErrorList is an ordered collection of validation errors.
type FieldErrorList []FieldError

// Has reports whether the list contains an error of the given kind.
func (l FieldErrorList) Has(kind string) bool {
	for _, e := range l {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// String summarizes the first few errors.
func (l FieldErrorList) String() string {
	if len(l) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(l)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		e := l[i]
		if e.Field != nil {
			fmt.Fprintf(b, "%s at %s", e.Kind, e.Field.nameLocked())
		} else {
			b.WriteString(e.Kind)
		}
	}
	if len(l) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(l))
	}
	return b.String()
}

// RequiredError returns the default error produced by the Required rule.
func RequiredError() FieldError {
	return FieldError{Kind: KindRequired, Message: "value is required"}
}

// MinError returns the default error produced by the Min rule.
func MinError(min float64) FieldError {
	return FieldError{Kind: KindMin, Message: fmt.Sprintf("value must be at least %v", min), Params: map[string]any{"min": min}}
}

// MaxError returns the default error produced by the Max rule.
func MaxError(max float64) FieldError {
	return FieldError{Kind: KindMax, Message: fmt.Sprintf("value must be at most %v", max), Params: map[string]any{"max": max}}
}

// MinLengthError returns the default error produced by the MinLength rule.
func MinLengthError(n int) FieldError {
	return FieldError{Kind: KindMinLength, Message: fmt.Sprintf("length must be at least %d", n), Params: map[string]any{"minLength": n}}
}

// MaxLengthError returns the default error produced by the MaxLength rule.
func MaxLengthError(n int) FieldError {
	return FieldError{Kind: KindMaxLength, Message: fmt.Sprintf("length must be at most %d", n), Params: map[string]any{"maxLength": n}}
}

// PatternError returns the default error produced by the Pattern rule.
func PatternError(re *regexp.Regexp) FieldError {
	return FieldError{Kind: KindPattern, Message: "value does not match the required pattern", Params: map[string]any{"pattern": re}}
}

// EmailError returns the default error produced by the Email rule.
func EmailError() FieldError {
	return FieldError{Kind: KindEmail, Message: "value is not a valid email address"}
}

// ServerError wraps a message reported by a submit action.
func ServerError(message string) FieldError {
	return FieldError{Kind: KindServer, Message: message}
}

// CustomError builds an error with an application-defined kind.
func CustomError(kind, message string) FieldError {
	if kind == "" {
		kind = KindCustom
	}
	return FieldError{Kind: kind, Message: message}
}

// stampField fills in the default target for errors whose rule did not set
// one explicitly. Runs exactly once per captured error; an explicit target
// is never overwritten.
func stampField(errs []FieldError, f *FieldNode) []FieldError {
	for i := range errs {
		if errs[i].Field == nil {
			errs[i].Field = f
		}
	}
	return errs
}
