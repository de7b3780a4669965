package schema

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidSchema is matched by every [ConfigError] returned while building a
// schema. Schema errors are programming errors: they are reported before any
// attempt runs and are never retried.
var ErrInvalidSchema = errors.New("jsonguard: invalid schema")

// Kind is the declared type of a schema field.
type Kind string

const (
	KindString     Kind = "string"
	KindStringList Kind = "string-list"
)

// Valid reports whether k is a supported field kind.
func (k Kind) Valid() bool {
	return k == KindString || k == KindStringList
}

// FieldSpec describes a single schema field.
type FieldSpec struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string
	// Default is substituted by the recovery pipeline when a recoverable field
	// is missing or malformed. Must be nil for required fields, a string for
	// KindString and a []string for KindStringList.
	Default any
}

// Required returns a required field spec. Required fields are never defaulted.
func Required(name string, kind Kind) FieldSpec {
	return FieldSpec{Name: name, Kind: kind, Required: true}
}

// Recoverable returns an optional field spec whose value falls back to def
// when the field is missing or malformed.
func Recoverable(name string, kind Kind, def any) FieldSpec {
	return FieldSpec{Name: name, Kind: kind, Default: def}
}

// ConfigError reports a schema that violates its own invariants.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrInvalidSchema, e.Reason)
	}
	return fmt.Sprintf("%v: field %q: %s", ErrInvalidSchema, e.Field, e.Reason)
}

// Is makes every ConfigError match ErrInvalidSchema.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Schema is an ordered, immutable set of field specifications.
type Schema struct {
	fields []FieldSpec
	index  map[string]int
}

// New builds a schema from fields in declaration order. It fails with a
// *ConfigError if a name is empty or duplicated, a kind is unknown, a required
// field has a default, or a recoverable field lacks a default of its kind.
func New(fields ...FieldSpec) (*Schema, error) {
	if len(fields) == 0 {
		return nil, &ConfigError{Reason: "schema has no fields"}
	}

	s := &Schema{
		fields: make([]FieldSpec, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, &ConfigError{Reason: "field name is empty"}
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, &ConfigError{Field: f.Name, Reason: "duplicate field name"}
		}
		if !f.Kind.Valid() {
			return nil, &ConfigError{Field: f.Name, Reason: fmt.Sprintf("unknown kind %q", f.Kind)}
		}

		if f.Required {
			if f.Default != nil {
				return nil, &ConfigError{Field: f.Name, Reason: "required field must not have a default"}
			}
		} else {
			def, err := normalizeDefault(f.Kind, f.Default)
			if err != nil {
				return nil, &ConfigError{Field: f.Name, Reason: err.Error()}
			}
			f.Default = def
		}

		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	return s, nil
}

// MustNew is like New but panics on error. Intended for package-level schemas
// whose definition is fixed at compile time.
func MustNew(fields ...FieldSpec) *Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// normalizeDefault checks that def matches kind and returns a private copy.
// A []any default for a list (as produced by YAML decoding) is accepted when
// every element is a string.
func normalizeDefault(kind Kind, def any) (any, error) {
	switch kind {
	case KindString:
		v, ok := def.(string)
		if !ok {
			return nil, fmt.Errorf("recoverable field needs a string default, got %T", def)
		}
		return v, nil

	case KindStringList:
		switch v := def.(type) {
		case []string:
			return slices.Clone(v), nil
		case []any:
			out := make([]string, 0, len(v))
			for i, elem := range v {
				str, ok := elem.(string)
				if !ok {
					return nil, fmt.Errorf("default element %d is %T, not string", i, elem)
				}
				out = append(out, str)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("recoverable field needs a []string default, got %T", def)
		}
	}

	return nil, fmt.Errorf("unknown kind %q", kind)
}

// Fields returns the field specs in declaration order. Defaults in the
// returned slice are copies.
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	for i, f := range s.fields {
		f.Default = s.DefaultValue(f)
		out[i] = f
	}
	return out
}

// Field looks up a field spec by name.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	f := s.fields[i]
	f.Default = s.DefaultValue(f)
	return f, true
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// DefaultValue returns a fresh copy of the field's default so that records
// never share backing arrays with the schema. Returns nil for required fields.
func (s *Schema) DefaultValue(f FieldSpec) any {
	switch v := f.Default.(type) {
	case []string:
		if v == nil {
			return []string{}
		}
		return slices.Clone(v)
	default:
		return v
	}
}

// Example returns the language profile schema used throughout the docs and
// the CLI default: language and purpose are required strings, benefits is a
// recoverable string list defaulting to empty.
func Example() *Schema {
	return MustNew(
		Required("language", KindString),
		Required("purpose", KindString),
		Recoverable("benefits", KindStringList, []string{}),
	)
}
