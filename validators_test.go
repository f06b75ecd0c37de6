package sigform_test

import (
	"regexp"
	"testing"

	"github.com/reoring/sigform"
)

func singleFieldForm(t *testing.T, value any, declare func(p *sigform.FieldPath)) *sigform.FieldNode {
	t.Helper()
	form := sigform.New(map[string]any{"v": value}, sigform.SchemaOf(func(p *sigform.FieldPath) {
		declare(p.Child("v"))
	}))
	return form.Root().Child("v")
}

func TestRequired(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"false", false, true},
		{"zero is not empty", 0.0, false},
		{"string", "x", false},
		{"true", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := singleFieldForm(t, tc.value, func(p *sigform.FieldPath) {
				sigform.Required(p)
			})
			if got := f.Errors().Has(sigform.KindRequired); got != tc.want {
				t.Errorf("Required(%v): error present = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestMinMax(t *testing.T) {
	f := singleFieldForm(t, 10.0, func(p *sigform.FieldPath) {
		sigform.Min(p, 18)
		sigform.Max(p, 65)
	})
	if !f.Errors().Has(sigform.KindMin) {
		t.Fatalf("10 < 18: want min error, got %v", f.Errors())
	}
	f.SetValue(70.0)
	if !f.Errors().Has(sigform.KindMax) {
		t.Fatalf("70 > 65: want max error, got %v", f.Errors())
	}
	f.SetValue(30.0)
	if len(f.Errors()) != 0 {
		t.Fatalf("30 in range: want no errors, got %v", f.Errors())
	}
}

// Zero is a present value: Min must fire on it instead of treating it as
// missing.
func TestMinFiresOnZero(t *testing.T) {
	f := singleFieldForm(t, 0.0, func(p *sigform.FieldPath) {
		sigform.Min(p, 1)
	})
	if !f.Errors().Has(sigform.KindMin) {
		t.Fatalf("Min(1) on 0: want min error, got %v", f.Errors())
	}
}

func TestBoundsSkipEmptyAndNonNumeric(t *testing.T) {
	for _, v := range []any{nil, "", "abc"} {
		f := singleFieldForm(t, v, func(p *sigform.FieldPath) {
			sigform.Min(p, 18)
		})
		if len(f.Errors()) != 0 {
			t.Errorf("Min on %#v: want no errors, got %v", v, f.Errors())
		}
	}
}

func TestLengths(t *testing.T) {
	f := singleFieldForm(t, "ab", func(p *sigform.FieldPath) {
		sigform.MinLength(p, 3)
		sigform.MaxLength(p, 5)
	})
	if !f.Errors().Has(sigform.KindMinLength) {
		t.Fatalf("len 2 < 3: want minLength error, got %v", f.Errors())
	}
	f.SetValue("abcdef")
	if !f.Errors().Has(sigform.KindMaxLength) {
		t.Fatalf("len 6 > 5: want maxLength error, got %v", f.Errors())
	}
	f.SetValue("abcd")
	if len(f.Errors()) != 0 {
		t.Fatalf("len 4: want no errors, got %v", f.Errors())
	}
}

func TestLengthOnArray(t *testing.T) {
	f := singleFieldForm(t, []any{1.0}, func(p *sigform.FieldPath) {
		sigform.MinLength(p, 2)
	})
	if !f.Errors().Has(sigform.KindMinLength) {
		t.Fatalf("one element < 2: want minLength error, got %v", f.Errors())
	}
}

func TestPattern(t *testing.T) {
	re := regexp.MustCompile(`^[a-z]+$`)
	f := singleFieldForm(t, "abc123", func(p *sigform.FieldPath) {
		sigform.Pattern(p, re)
	})
	if !f.Errors().Has(sigform.KindPattern) {
		t.Fatalf("want pattern error, got %v", f.Errors())
	}
	f.SetValue("abc")
	if len(f.Errors()) != 0 {
		t.Fatalf("matching value: want no errors, got %v", f.Errors())
	}
	if ps := f.Patterns(); len(ps) != 1 || ps[0] != re {
		t.Fatalf("Patterns() = %v, want the declared pattern", ps)
	}
}

func TestEmail(t *testing.T) {
	cases := []struct {
		value string
		valid bool
	}{
		{"user@example.com", true},
		{"user@example", false},
		{"not an email", false},
		{"", true}, // empty passes, Required owns presence
	}
	for _, tc := range cases {
		f := singleFieldForm(t, tc.value, func(p *sigform.FieldPath) {
			sigform.Email(p)
		})
		if got := len(f.Errors()) == 0; got != tc.valid {
			t.Errorf("Email(%q): valid = %v, want %v", tc.value, got, tc.valid)
		}
	}
}

func TestWithMessage(t *testing.T) {
	f := singleFieldForm(t, nil, func(p *sigform.FieldPath) {
		sigform.Required(p, sigform.WithMessage("name me"))
	})
	errs := f.Errors()
	if len(errs) != 1 || errs[0].Message != "name me" {
		t.Fatalf("got %v, want single error with custom message", errs)
	}
}

func TestWithError(t *testing.T) {
	f := singleFieldForm(t, nil, func(p *sigform.FieldPath) {
		sigform.Required(p, sigform.WithError(func(c *sigform.FieldContext) sigform.FieldError {
			return sigform.CustomError("missing-name", "who are you?")
		}))
	})
	if !f.Errors().Has("missing-name") {
		t.Fatalf("got %v, want custom kind", f.Errors())
	}
}

func TestMetadataAggregation(t *testing.T) {
	f := singleFieldForm(t, 50.0, func(p *sigform.FieldPath) {
		sigform.Min(p, 10)
		sigform.Min(p, 30)
		sigform.Max(p, 90)
		sigform.Max(p, 60)
	})
	if min, ok := f.Min(); !ok || min != 30 {
		t.Errorf("Min() = %v, %v; want 30 (largest minimum wins)", min, ok)
	}
	if max, ok := f.Max(); !ok || max != 60 {
		t.Errorf("Max() = %v, %v; want 60 (smallest maximum wins)", max, ok)
	}
	if f.Required() {
		t.Errorf("Required() = true with no Required rule")
	}
}

func TestCustomAggregateKey(t *testing.T) {
	units := sigform.NewAggregateKey("units",
		func() any { return []string(nil) },
		func(acc, item any) any { return append(acc.([]string), item.(string)) })
	f := singleFieldForm(t, 1.0, func(p *sigform.FieldPath) {
		sigform.Metadata(p, units, func(*sigform.FieldContext) any { return "kg" })
		sigform.Metadata(p, units, func(*sigform.FieldContext) any { return "lb" })
	})
	v, ok := f.Aggregate(units)
	if !ok {
		t.Fatalf("Aggregate: no contribution recorded")
	}
	got := v.([]string)
	if len(got) != 2 || got[0] != "kg" || got[1] != "lb" {
		t.Fatalf("Aggregate = %v, want [kg lb]", got)
	}
}
