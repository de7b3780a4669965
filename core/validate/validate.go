// Package validate implements strict, all-or-nothing schema validation of a
// parsed provider response.
//
// Every schema field, required or recoverable, must be present and of its
// declared kind. A single defect rejects the whole value. All violations are
// collected so a caller can report every problem in one pass.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/jsonguard/core/schema"
)

// Violation reasons.
const (
	ReasonMissing        = "missing"
	ReasonWrongType      = "wrong type"
	ReasonExpectedObject = "expected object"
)

// RootField names the pseudo-field used when the top-level value is not an
// object.
const RootField = "root"

// ErrSchemaViolation is matched by every *SchemaViolation.
var ErrSchemaViolation = errors.New("jsonguard: response violates schema")

// Violation is a single field defect.
type Violation struct {
	Field  string
	Reason string
	// Detail adds context such as the offending type or element index.
	Detail string
}

func (v Violation) String() string {
	if v.Detail == "" {
		return v.Field + ": " + v.Reason
	}
	return fmt.Sprintf("%s: %s (%s)", v.Field, v.Reason, v.Detail)
}

// SchemaViolation lists every defect found in one value, in schema order.
type SchemaViolation struct {
	Violations []Violation
}

func (e *SchemaViolation) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

// Is makes every SchemaViolation match ErrSchemaViolation.
func (e *SchemaViolation) Is(target error) bool {
	return target == ErrSchemaViolation
}

// Fields returns the names of the violating fields in order.
func (e *SchemaViolation) Fields() []string {
	names := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		names[i] = v.Field
	}
	return names
}

// Validate checks value against s and returns a record holding every field
// verbatim. No defaults are applied. On any defect it returns a
// *SchemaViolation carrying all violations.
func Validate(value any, s *schema.Schema) (*schema.Record, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &SchemaViolation{Violations: []Violation{{
			Field:  RootField,
			Reason: ReasonExpectedObject,
			Detail: "got " + TypeName(value),
		}}}
	}

	var violations []Violation
	values := make(map[string]any, s.Len())

	for _, f := range s.Fields() {
		raw, present := obj[f.Name]
		if !present {
			violations = append(violations, Violation{Field: f.Name, Reason: ReasonMissing})
			continue
		}

		v, detail := checkKind(f.Kind, raw)
		if detail != "" {
			violations = append(violations, Violation{Field: f.Name, Reason: ReasonWrongType, Detail: detail})
			continue
		}
		values[f.Name] = v
	}

	if len(violations) > 0 {
		return nil, &SchemaViolation{Violations: violations}
	}

	return s.NewRecord(values)
}

// checkKind converts raw to the Go representation of kind. A non-empty detail
// describes why raw does not match.
func checkKind(kind schema.Kind, raw any) (any, string) {
	switch kind {
	case schema.KindString:
		str, ok := raw.(string)
		if !ok {
			return nil, "expected string, got " + TypeName(raw)
		}
		return str, ""

	case schema.KindStringList:
		list, ok := raw.([]any)
		if !ok {
			return nil, "expected string-list, got " + TypeName(raw)
		}
		out := make([]string, len(list))
		for i, elem := range list {
			str, ok := elem.(string)
			if !ok {
				return nil, fmt.Sprintf("element %d is %s", i, TypeName(elem))
			}
			out[i] = str
		}
		return out, ""
	}

	return nil, fmt.Sprintf("unsupported kind %q", kind)
}

// TypeName names the JSON type of a parsed value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
