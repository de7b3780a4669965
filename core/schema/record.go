package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Record is a normalized, schema-conforming value. Every schema field is
// present and holds a value of its declared kind: string for KindString and
// []string for KindStringList.
//
// Records are immutable; accessors return copies of list values.
type Record struct {
	names  []string
	values map[string]any
}

// NewRecord checks values against the schema and builds a Record holding
// exactly the schema's fields. Keys absent from the schema are ignored.
// It is the single place where the record invariant is enforced; both the
// strict validator and the recovery normalizer go through it.
func (s *Schema) NewRecord(values map[string]any) (*Record, error) {
	r := &Record{
		names:  s.Names(),
		values: make(map[string]any, len(s.fields)),
	}

	for _, f := range s.fields {
		v, ok := values[f.Name]
		if !ok {
			return nil, fmt.Errorf("record field %q: missing", f.Name)
		}

		switch f.Kind {
		case KindString:
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("record field %q: expected string, got %T", f.Name, v)
			}
			r.values[f.Name] = str

		case KindStringList:
			list, ok := v.([]string)
			if !ok {
				return nil, fmt.Errorf("record field %q: expected []string, got %T", f.Name, v)
			}
			if list == nil {
				list = []string{}
			}
			r.values[f.Name] = slices.Clone(list)
		}
	}

	return r, nil
}

// Names returns the record's field names in schema order.
func (r *Record) Names() []string {
	return slices.Clone(r.names)
}

// Get returns the raw value for name. List values are copied.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	if !ok {
		return nil, false
	}
	if list, isList := v.([]string); isList {
		return slices.Clone(list), true
	}
	return v, true
}

// String returns the value of a string field, or "" if name is not a string
// field of this record.
func (r *Record) String(name string) string {
	s, _ := r.values[name].(string)
	return s
}

// Strings returns a copy of a string-list field, or nil if name is not a
// string-list field of this record.
func (r *Record) Strings(name string) []string {
	list, ok := r.values[name].([]string)
	if !ok {
		return nil
	}
	return slices.Clone(list)
}

// Map returns a copy of the record as a plain map.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for _, name := range r.names {
		out[name], _ = r.Get(name)
	}
	return out
}

// MarshalJSON encodes the record as a JSON object whose keys follow schema
// order rather than the alphabetical order encoding/json uses for maps.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("record field %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode copies the record into a typed value, typically a struct with json
// tags matching the schema field names.
//
//	var profile struct {
//	    Language string   `json:"language"`
//	    Purpose  string   `json:"purpose"`
//	    Benefits []string `json:"benefits"`
//	}
//	err := record.Decode(&profile)
func (r *Record) Decode(into any) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to decode record into %T: %w", into, err)
	}
	return nil
}
