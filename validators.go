package sigform

import (
	"math"
	"reflect"
	"regexp"
)

// ValidatorOption customizes a built-in validator's error.
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	message string
	errFn   func(*FieldContext) FieldError
}

// WithMessage overrides the default human-readable message.
func WithMessage(msg string) ValidatorOption {
	return func(c *validatorConfig) { c.message = msg }
}

// WithError replaces the produced error entirely, computed from the
// evaluation context.
func WithError(fn func(*FieldContext) FieldError) ValidatorOption {
	return func(c *validatorConfig) { c.errFn = fn }
}

func buildConfig(opts []ValidatorOption) validatorConfig {
	var c validatorConfig
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c validatorConfig) errorFor(ctx *FieldContext, def FieldError) []FieldError {
	if c.errFn != nil {
		return []FieldError{c.errFn(ctx)}
	}
	if c.message != "" {
		def.Message = c.message
	}
	return []FieldError{def}
}

// isEmpty is the uniform emptiness check shared by the built-in validators:
// nil, the empty string, false, and NaN are empty. Numeric zero is not.
// Every validator except Required treats an empty value as passing, so that
// Required alone owns the "must be present" concern and all other rules
// compose with optional fields.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	}
	return false
}

// asFloat converts any numeric value to float64. ok is false for
// non-numeric values.
func asFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// lengthOrSize returns the length of strings, slices, arrays and maps.
func lengthOrSize(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// Required marks the path as required and fails validation on empty values.
// It is the only built-in validator that fires on emptiness.
func Required(path *FieldPath, opts ...ValidatorOption) {
	cfg := buildConfig(opts)
	Metadata(path, KeyRequired, func(*FieldContext) any { return true })
	Validate(path, func(c *FieldContext) []FieldError {
		if isEmpty(c.Value()) {
			return cfg.errorFor(c, RequiredError())
		}
		return nil
	})
}

// Min requires the path's numeric value to be at least min. Empty and
// non-numeric values pass; a NaN bound means no constraint.
func Min(path *FieldPath, min float64, opts ...ValidatorOption) {
	cfg := buildConfig(opts)
	Metadata(path, KeyMin, func(*FieldContext) any { return min })
	Validate(path, func(c *FieldContext) []FieldError {
		if math.IsNaN(min) {
			return nil
		}
		v := c.Value()
		if isEmpty(v) {
			return nil
		}
		n, ok := asFloat(v)
		if !ok || math.IsNaN(n) {
			return nil
		}
		if n < min {
			return cfg.errorFor(c, MinError(min))
		}
		return nil
	})
}

// Max requires the path's numeric value to be at most max. Empty and
// non-numeric values pass; a NaN bound means no constraint.
func Max(path *FieldPath, max float64, opts ...ValidatorOption) {
	cfg := buildConfig(opts)
	Metadata(path, KeyMax, func(*FieldContext) any { return max })
	Validate(path, func(c *FieldContext) []FieldError {
		if math.IsNaN(max) {
			return nil
		}
		v := c.Value()
		if isEmpty(v) {
			return nil
		}
		n, ok := asFloat(v)
		if !ok || math.IsNaN(n) {
			return nil
		}
		if n > max {
			return cfg.errorFor(c, MaxError(max))
		}
		return nil
	})
}

// MinLength requires the path's value (string, slice, array or map) to have
// at least n elements. Empty values pass.
func MinLength(path *FieldPath, n int, opts ...ValidatorOption) {
	cfg := buildConfig(opts)
	Metadata(path, KeyMinLength, func(*FieldContext) any { return n })
	Validate(path, func(c *FieldContext) []FieldError {
		v := c.Value()
		if isEmpty(v) {
			return nil
		}
		l, ok := lengthOrSize(v)
		if !ok {
			return nil
		}
		if l < n {
			return cfg.errorFor(c, MinLengthError(n))
		}
		return nil
	})
}

// MaxLength requires the path's value (string, slice, array or map) to have
// at most n elements. Empty values pass.
func MaxLength(path *FieldPath, n int, opts ...ValidatorOption) {
	cfg := buildConfig(opts)
	Metadata(path, KeyMaxLength, func(*FieldContext) any { return n })
	Validate(path, func(c *FieldContext) []FieldError {
		v := c.Value()
		if isEmpty(v) {
			return nil
		}
		l, ok := lengthOrSize(v)
		if !ok {
			return nil
		}
		if l > n {
			return cfg.errorFor(c, MaxLengthError(n))
		}
		return nil
	})
}

// Pattern requires the path's string value to match re. Empty and
// non-string values pass.
func Pattern(path *FieldPath, re *regexp.Regexp, opts ...ValidatorOption) {
	if re == nil {
		panic("sigform: Pattern: nil regexp")
	}
	cfg := buildConfig(opts)
	Metadata(path, KeyPattern, func(*FieldContext) any { return re })
	Validate(path, func(c *FieldContext) []FieldError {
		v := c.Value()
		if isEmpty(v) {
			return nil
		}
		s, ok := v.(string)
		if !ok {
			return nil
		}
		if !re.MatchString(s) {
			return cfg.errorFor(c, PatternError(re))
		}
		return nil
	})
}

// emailPattern is intentionally permissive: one @, no spaces, a dot in the
// domain part.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email requires the path's string value to look like an email address.
// Empty values pass.
func Email(path *FieldPath, opts ...ValidatorOption) {
	cfg := buildConfig(opts)
	Validate(path, func(c *FieldContext) []FieldError {
		v := c.Value()
		if isEmpty(v) {
			return nil
		}
		s, ok := v.(string)
		if !ok {
			return nil
		}
		if !emailPattern.MatchString(s) {
			return cfg.errorFor(c, EmailError())
		}
		return nil
	})
}
