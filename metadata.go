package sigform

import "regexp"

// AggregateKey names a reducible metadata property. Multiple rules may
// contribute values for the same key on the same field; contributions are
// combined with the key's reducer starting from its identity element. The
// built-in validators publish their thresholds through these keys so UI
// bindings can introspect them (render a required marker, set a native min
// attribute, and so on).
type AggregateKey struct {
	name    string
	initial func() any
	reduce  func(acc, item any) any
}

// NewAggregateKey defines a custom aggregate metadata key.
func NewAggregateKey(name string, initial func() any, reduce func(acc, item any) any) *AggregateKey {
	if name == "" || initial == nil || reduce == nil {
		panic("sigform: NewAggregateKey: name, initial and reduce are all required")
	}
	return &AggregateKey{name: name, initial: initial, reduce: reduce}
}

// Name returns the key's name.
func (k *AggregateKey) Name() string { return k.name }

// Built-in aggregate keys. The reducers pick the most restrictive
// combination: the largest declared minimum wins, the smallest declared
// maximum wins, required is a logical OR, and patterns accumulate.
var (
	KeyRequired = &AggregateKey{
		name:    "required",
		initial: func() any { return false },
		reduce:  func(acc, item any) any { return acc.(bool) || item.(bool) },
	}
	KeyMin = &AggregateKey{
		name:    "min",
		initial: func() any { return nil },
		reduce: func(acc, item any) any {
			v := item.(float64)
			if acc == nil || v > acc.(float64) {
				return v
			}
			return acc
		},
	}
	KeyMax = &AggregateKey{
		name:    "max",
		initial: func() any { return nil },
		reduce: func(acc, item any) any {
			v := item.(float64)
			if acc == nil || v < acc.(float64) {
				return v
			}
			return acc
		},
	}
	KeyMinLength = &AggregateKey{
		name:    "minLength",
		initial: func() any { return nil },
		reduce: func(acc, item any) any {
			v := item.(int)
			if acc == nil || v > acc.(int) {
				return v
			}
			return acc
		},
	}
	KeyMaxLength = &AggregateKey{
		name:    "maxLength",
		initial: func() any { return nil },
		reduce: func(acc, item any) any {
			v := item.(int)
			if acc == nil || v < acc.(int) {
				return v
			}
			return acc
		},
	}
	KeyPattern = &AggregateKey{
		name:    "pattern",
		initial: func() any { return []*regexp.Regexp(nil) },
		reduce: func(acc, item any) any {
			return append(acc.([]*regexp.Regexp), item.(*regexp.Regexp))
		},
	}
)

// Metadata registers a contribution to an aggregate metadata key on the
// given path. Gated contributions (inside ApplyWhen) that are switched off
// contribute nothing, which is different from contributing a zero value.
func Metadata(path *FieldPath, key *AggregateKey, fn func(*FieldContext) any) {
	assertCompiling(path, "Metadata")
	if key == nil || fn == nil {
		panic("sigform: Metadata: nil key or contribution")
	}
	path.builder.rules.metadata = append(path.builder.rules.metadata, metadataRule{key: key, fn: fn})
}

// metadataValue reduces all gated contributions for key on f. ok is false
// when no rule contributed, letting callers distinguish "no rule declared"
// from a reduced zero value.
func (f *FieldNode) metadataValue(key *AggregateKey) (any, bool) {
	acc := key.initial()
	contributed := false
	for _, bl := range f.logics {
		for _, r := range bl.b.rules.metadata {
			if r.key != key {
				continue
			}
			if !f.gatesPass(bl) {
				continue
			}
			acc = key.reduce(acc, r.fn(f.evalCtx(bl)))
			contributed = true
		}
	}
	return acc, contributed
}
