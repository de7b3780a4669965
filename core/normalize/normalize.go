// Package normalize implements field-level recovery of a parsed provider
// response.
//
// Fields are evaluated independently. Required fields are all-or-nothing: a
// missing or mistyped required field fails the whole value with an
// [UnrecoverableFieldError] and is never fabricated. Recoverable fields are
// repaired instead of rejected: string lists keep their string elements and
// drop the rest, and anything missing or of the wrong shape falls back to the
// field's default.
package normalize

import (
	"errors"
	"fmt"

	"github.com/leofalp/jsonguard/core/schema"
	"github.com/leofalp/jsonguard/core/validate"
)

// ErrUnrecoverable is matched by every *UnrecoverableFieldError.
var ErrUnrecoverable = errors.New("jsonguard: unrecoverable field")

// UnrecoverableFieldError reports a required field that could not be
// accepted. Problems with recoverable fields never produce this error.
type UnrecoverableFieldError struct {
	Field  string
	Reason string
	Detail string
}

func (e *UnrecoverableFieldError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unrecoverable field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("unrecoverable field %q: %s (%s)", e.Field, e.Reason, e.Detail)
}

// Is makes every UnrecoverableFieldError match ErrUnrecoverable.
func (e *UnrecoverableFieldError) Is(target error) bool {
	return target == ErrUnrecoverable
}

// Repair describes what recovery did to one recoverable field.
type Repair struct {
	Field string
	// Defaulted is true when the field's default replaced the provider value.
	Defaulted bool
	// Dropped counts list elements discarded because they were not strings.
	Dropped int
}

// Report lists the repairs applied while normalizing one value. A value that
// needed no repair yields an empty report.
type Report struct {
	Repairs []Repair
}

// Repaired reports whether any field was altered.
func (r Report) Repaired() bool {
	return len(r.Repairs) > 0
}

// Normalize recovers a record from value. It fails only when the root is not
// an object or a required field is missing or mistyped.
func Normalize(value any, s *schema.Schema) (*schema.Record, error) {
	rec, _, err := NormalizeWithReport(value, s)
	return rec, err
}

// NormalizeWithReport is Normalize plus a report of the repairs applied to
// recoverable fields.
func NormalizeWithReport(value any, s *schema.Schema) (*schema.Record, Report, error) {
	var report Report

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, report, &UnrecoverableFieldError{
			Field:  validate.RootField,
			Reason: validate.ReasonExpectedObject,
			Detail: "got " + validate.TypeName(value),
		}
	}

	values := make(map[string]any, s.Len())

	for _, f := range s.Fields() {
		raw, present := obj[f.Name]

		if f.Required {
			v, err := requiredValue(f, raw, present)
			if err != nil {
				return nil, report, err
			}
			values[f.Name] = v
			continue
		}

		v, repair := recoverValue(f, raw, present)
		values[f.Name] = v
		if repair.Defaulted || repair.Dropped > 0 {
			report.Repairs = append(report.Repairs, repair)
		}
	}

	rec, err := s.NewRecord(values)
	if err != nil {
		return nil, report, err
	}
	return rec, report, nil
}

func requiredValue(f schema.FieldSpec, raw any, present bool) (any, error) {
	if !present {
		return nil, &UnrecoverableFieldError{Field: f.Name, Reason: validate.ReasonMissing}
	}

	switch f.Kind {
	case schema.KindString:
		if str, ok := raw.(string); ok {
			return str, nil
		}

	case schema.KindStringList:
		if list, ok := stringList(raw); ok {
			return list, nil
		}
	}

	return nil, &UnrecoverableFieldError{
		Field:  f.Name,
		Reason: validate.ReasonWrongType,
		Detail: fmt.Sprintf("expected %s, got %s", f.Kind, validate.TypeName(raw)),
	}
}

// stringList accepts a list only if every element is a string.
func stringList(raw any) ([]string, bool) {
	list, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, len(list))
	for i, elem := range list {
		str, ok := elem.(string)
		if !ok {
			return nil, false
		}
		out[i] = str
	}
	return out, true
}

func recoverValue(f schema.FieldSpec, raw any, present bool) (any, Repair) {
	repair := Repair{Field: f.Name}

	switch f.Kind {
	case schema.KindString:
		if str, ok := raw.(string); ok && present {
			return str, repair
		}

	case schema.KindStringList:
		if list, ok := raw.([]any); ok && present {
			kept := make([]string, 0, len(list))
			for _, elem := range list {
				if str, isString := elem.(string); isString {
					kept = append(kept, str)
				}
			}
			repair.Dropped = len(list) - len(kept)
			return kept, repair
		}
	}

	repair.Defaulted = true
	return f.Default, repair
}
